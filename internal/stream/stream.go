// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stream.go - Chunk source abstraction for the prefill reconciler.

package stream

import "io"

// Chunk is a single unit of streamed output. A chunk carries either
// text the source already decoded, or a raw payload that must pass
// through the reconciler's decode step before use.
type Chunk struct {
	Text string // decoded text, used when Raw is nil
	Raw  []byte // undecoded payload, decoded on demand when non-nil
}

// TextChunk returns a chunk holding already-decoded text.
func TextChunk(s string) Chunk {
	return Chunk{Text: s}
}

// RawChunk returns a chunk holding an undecoded payload.
func RawChunk(b []byte) Chunk {
	return Chunk{Raw: b}
}

// IsRaw reports whether the chunk still needs decoding.
func (c Chunk) IsRaw() bool {
	return c.Raw != nil
}

// Source produces chunks on demand. Next returns io.EOF once the
// stream is exhausted; any other error is a mid-stream failure that
// the reconciler passes through to its own caller unchanged.
type Source interface {
	Next() (Chunk, error)
}

// DecodeFunc converts a raw chunk payload to text. It is applied only
// to chunks for which IsRaw reports true; pre-decoded text bypasses it.
type DecodeFunc func([]byte) (string, error)

// Recorder receives every consumed chunk in arrival order, in its
// original form, before any decoding. The reconciler only appends to a
// Recorder and never reads it back.
type Recorder interface {
	Record(Chunk)
}

// ChunkLog is an append-only Recorder backed by a slice.
type ChunkLog struct {
	chunks []Chunk
}

// Record appends a chunk to the log.
func (l *ChunkLog) Record(c Chunk) {
	l.chunks = append(l.chunks, c)
}

// Chunks returns the recorded chunks in arrival order.
func (l *ChunkLog) Chunks() []Chunk {
	return l.chunks
}

// Len returns the number of recorded chunks.
func (l *ChunkLog) Len() int {
	return len(l.chunks)
}

// TextSource is a Source over a fixed sequence of text chunks.
type TextSource struct {
	chunks []string
	pos    int
}

// NewTextSource returns a Source yielding the given chunks in order.
func NewTextSource(chunks ...string) *TextSource {
	return &TextSource{chunks: chunks}
}

// Next returns the next chunk, or io.EOF when none remain.
func (s *TextSource) Next() (Chunk, error) {
	if s.pos >= len(s.chunks) {
		return Chunk{}, io.EOF
	}
	c := TextChunk(s.chunks[s.pos])
	s.pos++
	return c, nil
}
