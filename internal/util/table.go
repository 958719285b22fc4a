// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// table.go - Plain-text column alignment for list output.

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table renders headers and rows as aligned columns joined by four
// spaces. Column widths follow the widest cell, measured in display
// columns so CJK text lines up. Short rows render empty trailing cells;
// the last column is never padded, so lines carry no trailing spaces.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(headers) && i < len(row); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		var line strings.Builder
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i == len(headers)-1 {
				line.WriteString(cell)
			} else {
				line.WriteString(runewidth.FillRight(cell, widths[i]))
				line.WriteString("    ")
			}
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteByte('\n')
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
