// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream reconciles an assistant prefill with a live chunked
// completion stream.
//
// When a request seeds the assistant's reply with a prefill, some APIs
// echo that text back at the start of the stream and some do not. The
// Reconciler in this package consumes the stream lazily, decides with
// bounded lookahead whether the stream's leading characters repeat the
// prefill, and produces a corrected sequence of segments that always
// begins with the prefill exactly once.
//
// # Key Types
//
//   - Chunk: one unit of streamed output, decoded text or a raw payload
//   - Source: pull cursor producing chunks on demand
//   - Reconciler: the segment cursor returned by New
//   - Recorder: optional side channel receiving original chunks
//
// # Usage
//
// Wrap a chunk source and print segments as they arrive:
//
//	r := stream.New(prefill, src, stream.Options{})
//	for {
//		seg, err := r.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		fmt.Print(seg)
//	}
//
// The reconciler performs no I/O of its own, never reads ahead of
// demand beyond the match decision, and propagates source failures
// unchanged.
package stream
