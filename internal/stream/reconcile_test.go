// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// drain collects every segment from the reconciler until io.EOF.
func drain(t *testing.T, r *Reconciler) []string {
	t.Helper()
	var segs []string
	for {
		seg, err := r.Next()
		if err == io.EOF {
			return segs
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		segs = append(segs, seg)
	}
}

// =============================================================================
// RECONCILIATION OUTCOMES
// =============================================================================

func TestReconciler_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		prefill string
		chunks  []string
		want    string
	}{
		{
			name:    "stream starts past the prefill",
			prefill: "My fave color",
			chunks:  []string{"is", " orange"},
			want:    "My fave color is orange",
		},
		{
			name:    "partial repeat then divergence",
			prefill: "My fave color",
			chunks:  []string{"My", " fave", " is", " orange"},
			want:    "My fave color My fave is orange",
		},
		{
			name:    "full repeat split across chunks",
			prefill: "My fave color",
			chunks:  []string{"My", " fave", " color", " is", " orange"},
			want:    "My fave color is orange",
		},
		{
			name:    "divergence at first chunk",
			prefill: "My fave color",
			chunks:  []string{"fave", " color", " is", " orange"},
			want:    "My fave color fave color is orange",
		},
		{
			name:    "repeat plus extra in first chunk",
			prefill: "My fave color",
			chunks:  []string{"My fave color is", " orange"},
			want:    "My fave color is orange",
		},
		{
			name:    "repeat is exactly the first chunk",
			prefill: "My fave color",
			chunks:  []string{"My fave color", " is orange"},
			want:    "My fave color is orange",
		},
		{
			name:    "continuation that starts with a space",
			prefill: "The answer is",
			chunks:  []string{" 42."},
			want:    "The answer is  42.",
		},
		{
			name:    "unrelated stream gets a separator",
			prefill: "Hello",
			chunks:  []string{"Goodbye world"},
			want:    "Hello Goodbye world",
		},
		{
			name:    "match confirmed exactly at a chunk boundary",
			prefill: "abcdef",
			chunks:  []string{"abc", "def", "ghi"},
			want:    "abcdefghi",
		},
		{
			name:    "stream too short to contain the prefill",
			prefill: "abcdef",
			chunks:  []string{"ab", "cd"},
			want:    "abcdef abcd",
		},
		{
			name:    "prefill ending in whitespace suppresses the separator",
			prefill: "Hello ",
			chunks:  []string{"Goodbye"},
			want:    "Hello Goodbye",
		},
		{
			name:    "empty stream",
			prefill: "abc",
			chunks:  nil,
			want:    "abc ",
		},
		{
			name:    "multibyte prefill split mid-rune",
			prefill: "héllo",
			chunks:  []string{"h\xc3", "\xa9llo world"},
			want:    "héllo world",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accumulate(tt.prefill, NewTextSource(tt.chunks...), Options{})
			if err != nil {
				t.Fatalf("Accumulate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Accumulate() = %q, want %q", got, tt.want)
			}

			// The output always restates the prefill exactly once at
			// the start, with the stream's own copy (when present)
			// removed and everything else intact.
			joined := strings.Join(tt.chunks, "")
			want := tt.want
			if strings.HasPrefix(joined, tt.prefill) {
				if want != joined {
					t.Errorf("matched stream must pass through unchanged: want %q, joined %q", want, joined)
				}
			} else if !strings.HasSuffix(want, joined) {
				t.Errorf("unmatched stream content must survive verbatim: want %q, joined %q", want, joined)
			}
		})
	}
}

func TestReconciler_FirstSegmentIsPrefill(t *testing.T) {
	r := New("Hello", NewTextSource("Goodbye world"), Options{})
	seg, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if seg != "Hello" {
		t.Errorf("first segment = %q, want 'Hello'", seg)
	}
}

func TestReconciler_MatchedStreamPassesThroughByChunk(t *testing.T) {
	r := New("abc", NewTextSource("abc", "def", "ghi"), Options{})
	segs := drain(t, r)

	// The matched repeat leaves an empty remainder, so the prefill is
	// followed directly by the untouched tail chunks.
	want := []string{"abc", "def", "ghi"}
	if len(segs) != len(want) {
		t.Fatalf("segments = %v, want %v", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment[%d] = %q, want %q", i, segs[i], want[i])
		}
	}
}

// =============================================================================
// EMPTY PREFILL
// =============================================================================

func TestReconciler_EmptyPrefillPassesThrough(t *testing.T) {
	r := New("", NewTextSource("alpha", "beta"), Options{})
	segs := drain(t, r)

	want := []string{"alpha", "beta"}
	if len(segs) != len(want) {
		t.Fatalf("segments = %v, want %v", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment[%d] = %q, want %q", i, segs[i], want[i])
		}
	}
}

func TestReconciler_EmptyPrefillEmptyStream(t *testing.T) {
	r := New("", NewTextSource(), Options{})
	seg, err := r.Next()
	if err != io.EOF {
		t.Fatalf("Next() = (%q, %v), want io.EOF", seg, err)
	}
}

// =============================================================================
// LAZINESS
// =============================================================================

// countingSource counts pulls so tests can assert demand-driven reads.
type countingSource struct {
	inner Source
	pulls int
}

func (s *countingSource) Next() (Chunk, error) {
	s.pulls++
	return s.inner.Next()
}

func TestReconciler_NoReadBeforeDemand(t *testing.T) {
	src := &countingSource{inner: NewTextSource("abc", "def")}
	_ = New("abc", src, Options{})
	if src.pulls != 0 {
		t.Errorf("pulls at construction = %d, want 0", src.pulls)
	}
}

func TestReconciler_ReadsStopAtDecision(t *testing.T) {
	src := &countingSource{inner: NewTextSource("abcdef tail", "x", "y")}
	r := New("abc", src, Options{})

	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	// The first chunk already decides the match; the remaining chunks
	// must not have been touched yet.
	if src.pulls != 1 {
		t.Errorf("pulls after decision = %d, want 1", src.pulls)
	}

	// The queued remainder is served without advancing the source.
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if src.pulls != 1 {
		t.Errorf("pulls after queued segment = %d, want 1", src.pulls)
	}

	// Steady state pulls exactly one chunk per segment.
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if src.pulls != 2 {
		t.Errorf("pulls after one pass-through segment = %d, want 2", src.pulls)
	}
}

// =============================================================================
// ERROR PROPAGATION
// =============================================================================

// failingSource yields its chunks and then a terminal error.
type failingSource struct {
	chunks []string
	pos    int
	err    error
}

func (s *failingSource) Next() (Chunk, error) {
	if s.pos >= len(s.chunks) {
		return Chunk{}, s.err
	}
	c := TextChunk(s.chunks[s.pos])
	s.pos++
	return c, nil
}

func TestReconciler_ErrorBeforeDecision(t *testing.T) {
	wantErr := errors.New("connection reset")
	r := New("abcdef", &failingSource{chunks: []string{"abc"}, err: wantErr}, Options{})

	seg, err := r.Next()
	if err != wantErr {
		t.Fatalf("Next() error = %v, want %v", err, wantErr)
	}
	if seg != "" {
		t.Errorf("segment alongside error = %q, want empty", seg)
	}

	// The error is sticky.
	if _, err := r.Next(); err != wantErr {
		t.Errorf("second Next() error = %v, want %v", err, wantErr)
	}
}

func TestReconciler_ErrorMidStream(t *testing.T) {
	wantErr := errors.New("connection reset")
	r := New("Hello", &failingSource{chunks: []string{"Goodbye", " world"}, err: wantErr}, Options{})

	var segs []string
	var got error
	for {
		seg, err := r.Next()
		if err != nil {
			got = err
			break
		}
		segs = append(segs, seg)
	}

	if got != wantErr {
		t.Errorf("terminal error = %v, want %v", got, wantErr)
	}
	// Segments delivered before the failure remain intact.
	if joined := strings.Join(segs, ""); joined != "Hello Goodbye world" {
		t.Errorf("segments before error = %q, want 'Hello Goodbye world'", joined)
	}
}

func TestReconciler_EOFIsSticky(t *testing.T) {
	r := New("abc", NewTextSource("abcdef"), Options{})
	drain(t, r)

	for i := 0; i < 2; i++ {
		if _, err := r.Next(); err != io.EOF {
			t.Fatalf("Next() after exhaustion = %v, want io.EOF", err)
		}
	}
}

// =============================================================================
// RECORDING AND DECODING
// =============================================================================

// rawSource yields raw payloads that need the decode step.
type rawSource struct {
	payloads [][]byte
	pos      int
}

func (s *rawSource) Next() (Chunk, error) {
	if s.pos >= len(s.payloads) {
		return Chunk{}, io.EOF
	}
	c := RawChunk(s.payloads[s.pos])
	s.pos++
	return c, nil
}

func TestReconciler_RecorderReceivesOriginalChunks(t *testing.T) {
	src := &rawSource{payloads: [][]byte{[]byte("x:Goodbye"), []byte("x: world")}}
	var log ChunkLog
	decode := func(b []byte) (string, error) {
		return strings.TrimPrefix(string(b), "x:"), nil
	}

	got, err := Accumulate("Hello", src, Options{Record: &log, Decode: decode})
	if err != nil {
		t.Fatalf("Accumulate() error = %v", err)
	}
	if got != "Hello Goodbye world" {
		t.Errorf("Accumulate() = %q, want 'Hello Goodbye world'", got)
	}

	if log.Len() != 2 {
		t.Fatalf("recorded chunks = %d, want 2", log.Len())
	}
	for i, want := range []string{"x:Goodbye", "x: world"} {
		c := log.Chunks()[i]
		if !c.IsRaw() {
			t.Errorf("chunk[%d] recorded post-decode", i)
		}
		if string(c.Raw) != want {
			t.Errorf("chunk[%d].Raw = %q, want %q", i, c.Raw, want)
		}
	}
}

func TestReconciler_RecorderSeesEveryChunkOnMatch(t *testing.T) {
	var log ChunkLog
	got, err := Accumulate("abc", NewTextSource("ab", "cdef"), Options{Record: &log})
	if err != nil {
		t.Fatalf("Accumulate() error = %v", err)
	}
	if got != "abcdef" {
		t.Errorf("Accumulate() = %q, want 'abcdef'", got)
	}
	if log.Len() != 2 {
		t.Errorf("recorded chunks = %d, want 2", log.Len())
	}
}

func TestReconciler_DefaultDecodeIsUTF8(t *testing.T) {
	src := &rawSource{payloads: [][]byte{[]byte("abc"), []byte("def")}}
	got, err := Accumulate("abc", src, Options{})
	if err != nil {
		t.Fatalf("Accumulate() error = %v", err)
	}
	if got != "abcdef" {
		t.Errorf("Accumulate() = %q, want 'abcdef'", got)
	}
}

func TestReconciler_DecodeErrorPropagates(t *testing.T) {
	wantErr := errors.New("bad payload")
	src := &rawSource{payloads: [][]byte{[]byte("junk")}}
	decode := func([]byte) (string, error) { return "", wantErr }

	r := New("abc", src, Options{Decode: decode})
	if _, err := r.Next(); err != wantErr {
		t.Errorf("Next() error = %v, want %v", err, wantErr)
	}
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestReconciler_Deterministic(t *testing.T) {
	run := func() string {
		out, err := Accumulate("My fave color", NewTextSource("My", " fave", " is", " orange"), Options{})
		if err != nil {
			t.Fatalf("Accumulate() error = %v", err)
		}
		return out
	}

	first := run()
	second := run()
	if first != second {
		t.Errorf("runs differ: %q vs %q", first, second)
	}
}
