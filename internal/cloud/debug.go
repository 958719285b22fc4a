// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// debug.go - Wire-level request and response dumping for --debug.

package cloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DebugTransport dumps every request and response to Out, correlating
// the pair with a short random id. Concurrent exchanges interleave in
// the dump, so the id is what ties a response to its request.
//
// SECURITY: credential headers are masked. The authorization value is
// never printed and cookies are reduced to their names.
type DebugTransport struct {
	Transport http.RoundTripper // nil means http.DefaultTransport
	Out       io.Writer
}

// RoundTrip implements http.RoundTripper.
func (d *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := uuid.NewString()[:8]

	fmt.Fprintf(d.Out, "Request [%s]: %s %s\n", id, req.Method, req.URL)
	d.dumpHeaders(req.Header)
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(data))
		if len(data) > 0 {
			fmt.Fprintf(d.Out, "  Body:\n%s\n", indentJSON(data, "    "))
		}
	}

	rt := d.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		fmt.Fprintf(d.Out, "Response [%s]: error=%v\n", id, err)
		return nil, err
	}

	fmt.Fprintf(d.Out, "Response [%s]: status_code=%d\n", id, resp.StatusCode)
	d.dumpHeaders(resp.Header)
	fmt.Fprintf(d.Out, "  Body:\n")

	// Streamed bodies are echoed as the consumer reads them, so chunks
	// appear in arrival order.
	resp.Body = &echoBody{rc: resp.Body, out: d.Out}
	return resp, nil
}

func (d *DebugTransport) dumpHeaders(h http.Header) {
	fmt.Fprintf(d.Out, "  Headers:\n")
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range h[name] {
			fmt.Fprintf(d.Out, "    %s: %s\n", strings.ToLower(name), maskHeader(name, value))
		}
	}
}

// maskHeader hides credential values while keeping enough shape to
// debug with.
func maskHeader(name, value string) string {
	switch strings.ToLower(name) {
	case "authorization":
		return "[...]"
	case "cookie", "set-cookie":
		return maskCookies(value)
	}
	return value
}

// maskCookies keeps cookie names and replaces every value with "...".
func maskCookies(value string) string {
	parts := strings.Split(value, ";")
	for i, part := range parts {
		pair := strings.TrimSpace(part)
		if name, _, ok := strings.Cut(pair, "="); ok {
			parts[i] = name + "=..."
		} else {
			parts[i] = pair
		}
	}
	return strings.Join(parts, "; ")
}

// indentJSON pretty-prints JSON bodies; anything else is emitted as-is
// behind the prefix.
func indentJSON(data []byte, prefix string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, prefix, "  "); err != nil {
		return prefix + string(data)
	}
	return prefix + buf.String()
}

// echoBody mirrors a response body to the debug writer as it is read.
type echoBody struct {
	rc  io.ReadCloser
	out io.Writer
}

func (b *echoBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.out.Write(p[:n])
	}
	return n, err
}

func (b *echoBody) Close() error { return b.rc.Close() }
