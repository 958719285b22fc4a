// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// reconcile.go - Prefill reconciliation over a chunked stream.
//
// STREAMING: Bounded lookahead, pull-driven, no speculative reads.
//
// The reconciler answers one question about the head of the stream:
// do its leading characters repeat the prefill? Answering needs at
// most len(prefill)+1 bytes of lookahead. Until the answer is known,
// consumed chunks accumulate in a buffer; afterwards every chunk
// passes through untouched, one per Next call.

package stream

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Options configures optional reconciler behavior. The zero value is
// valid: no recording, and raw chunks are taken as UTF-8 text.
type Options struct {
	// Record, when non-nil, receives every consumed chunk in its
	// original pre-decode form, in arrival order.
	Record Recorder

	// Decode, when non-nil, converts raw chunk payloads to text.
	Decode DecodeFunc
}

// Reconciler merges a prefill string into a chunked stream. It is a
// pull cursor: each Next call yields one output segment and advances
// the underlying source no further than required. Concatenating every
// segment yields the prefill, a single separating space when the
// stream turned out not to contain the prefill and the prefill does
// not already end in whitespace, and then the stream's full content
// with the matched leading prefix removed exactly once.
//
// A Reconciler is single-use and not safe for concurrent use.
type Reconciler struct {
	prefill string
	src     Source
	rec     Recorder
	decode  DecodeFunc

	decided   bool
	exhausted bool
	queue     []string
	err       error
}

// New returns a Reconciler over src. The source is not advanced until
// the first Next call.
func New(prefill string, src Source, opts Options) *Reconciler {
	return &Reconciler{
		prefill: prefill,
		src:     src,
		rec:     opts.Record,
		decode:  opts.Decode,
	}
}

// Next returns the next output segment. It returns io.EOF once the
// source is exhausted and every pending segment has been delivered.
// Any other error comes from the source or the decode step and is
// returned unchanged; segments already delivered remain valid. After
// a non-nil error every further call returns the same error.
func (r *Reconciler) Next() (string, error) {
	if r.err != nil {
		return "", r.err
	}

	if !r.decided {
		if err := r.decide(); err != nil {
			r.err = err
			return "", err
		}
	}

	if len(r.queue) > 0 {
		seg := r.queue[0]
		r.queue = r.queue[1:]
		return seg, nil
	}

	if r.exhausted {
		r.err = io.EOF
		return "", io.EOF
	}

	// Steady state: exactly one chunk per requested segment.
	text, err := r.take()
	if err != nil {
		if err == io.EOF {
			r.exhausted = true
		}
		r.err = err
		return "", err
	}
	return text, nil
}

// decide consumes chunks until the head of the stream is known to
// contain the prefill, known not to, or the source is exhausted. It
// queues the leading output segments accordingly.
func (r *Reconciler) decide() error {
	if r.prefill == "" {
		// An empty prefill matches trivially before any chunk
		// arrives: the stream passes through untouched.
		r.decided = true
		return nil
	}

	var buf strings.Builder
	for {
		text, err := r.take()
		if err == io.EOF {
			// Too little content to ever contain the prefill.
			r.exhausted = true
			r.decided = true
			r.queueHead(false, buf.String())
			return nil
		}
		if err != nil {
			return err
		}
		buf.WriteString(text)
		b := buf.String()

		if strings.HasPrefix(b, r.prefill) {
			r.decided = true
			r.queueHead(true, b[len(r.prefill):])
			return nil
		}

		// One byte past the prefill length is enough to rule the
		// match out; anything shorter must still be a prefix.
		probe := b
		if len(probe) > len(r.prefill)+1 {
			probe = probe[:len(r.prefill)+1]
		}
		if !strings.HasPrefix(r.prefill, probe) {
			r.decided = true
			r.queueHead(false, b)
			return nil
		}
	}
}

// queueHead queues the prefill, the separator when the stream did not
// contain the prefill, and the undelivered remainder of the buffer.
// Empty remainders queue nothing; concatenation is unaffected.
func (r *Reconciler) queueHead(matched bool, remainder string) {
	r.queue = append(r.queue, r.prefill)
	if !matched && !endsInSpace(r.prefill) {
		r.queue = append(r.queue, " ")
	}
	if remainder != "" {
		r.queue = append(r.queue, remainder)
	}
}

// take pulls one chunk from the source, records its original form,
// and returns its decoded text.
func (r *Reconciler) take() (string, error) {
	chunk, err := r.src.Next()
	if err != nil {
		return "", err
	}
	if r.rec != nil {
		r.rec.Record(chunk)
	}
	if !chunk.IsRaw() {
		return chunk.Text, nil
	}
	if r.decode == nil {
		return string(chunk.Raw), nil
	}
	return r.decode(chunk.Raw)
}

// endsInSpace reports whether the last rune of s is whitespace.
func endsInSpace(s string) bool {
	if s == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(last)
}

// Accumulate drains a reconciled stream into the complete output
// string. On a mid-stream failure it returns the segments delivered
// so far along with the error.
func Accumulate(prefill string, src Source, opts Options) (string, error) {
	r := New(prefill, src, opts)
	var sb strings.Builder
	for {
		seg, err := r.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(seg)
	}
}
