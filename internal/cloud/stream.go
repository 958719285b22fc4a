// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stream.go - Streaming chat completions over SSE.

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jeranaias/promptrun/internal/model"
	"github.com/jeranaias/promptrun/internal/stream"
)

// STREAMING: Robust SSE parsing with error handling

// MaxChunkSize is the maximum allowed size for a single SSE event (64KB)
const MaxChunkSize = 64 * 1024

// =============================================================================
// STREAM PAYLOADS
// =============================================================================

// StreamChunk represents a single parsed chunk of a streaming response.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// IsDone returns true if the chunk carries a finish reason.
func (c *StreamChunk) IsDone() bool {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason != ""
	}
	return false
}

// GetFinishReason returns the finish reason if streaming is complete.
func (c *StreamChunk) GetFinishReason() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason
	}
	return ""
}

// DecodeDelta extracts the delta text from a raw SSE chunk payload. It
// is the decode step handed to the prefill reconciler: recorders see
// the raw payload, consumers see only the text.
func DecodeDelta(data []byte) (string, error) {
	var chunk StreamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", fmt.Errorf("failed to parse stream chunk: %w", err)
	}
	return chunk.GetContent(), nil
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream and returns the
// event type and data. The event type is typically empty for chat
// completion responses. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	dataLen := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// A final line without a trailing newline still counts
				line = bytes.TrimRight(line, "\r\n")
				if bytes.HasPrefix(line, []byte("data:")) {
					dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
				}
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		// Trim trailing newline and carriage return
		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		// Parse field
		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			dataLines = append(dataLines, data)
			dataLen += len(data)
			if dataLen > MaxChunkSize {
				return "", nil, fmt.Errorf("SSE event too large: %d bytes", dataLen)
			}
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAM CURSOR
// =============================================================================

// Stream is a pull cursor over a streaming chat completion. Each Next
// call yields one raw SSE data payload, so nothing is read from the
// connection until the consumer asks for it. A [DONE] marker or the end
// of the body ends the stream with io.EOF and closes the connection.
//
// Stream implements the reconciler's chunk source; pair it with
// DecodeDelta to turn payloads into text.
type Stream struct {
	body io.ReadCloser
	sse  *SSEReader
	done bool
}

// Next returns the next raw chunk payload.
func (s *Stream) Next() (stream.Chunk, error) {
	if s.done {
		return stream.Chunk{}, io.EOF
	}
	for {
		_, data, err := s.sse.ReadEvent()
		if err != nil {
			s.done = true
			s.body.Close()
			if err == io.EOF {
				return stream.Chunk{}, io.EOF
			}
			return stream.Chunk{}, fmt.Errorf("failed to read stream: %w", err)
		}
		if len(data) == 0 {
			continue
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			s.done = true
			s.body.Close()
			return stream.Chunk{}, io.EOF
		}
		return stream.RawChunk(data), nil
	}
}

// Close releases the underlying connection before the stream is drained.
func (s *Stream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.body.Close()
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream opens a streaming chat completion request and returns the
// stream cursor. Connection failures and transient statuses are retried
// with backoff before the stream opens; once it is open, errors surface
// from Next directly.
func (c *Client) ChatStream(ctx context.Context, messages []model.Message, options map[string]string) (*Stream, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	url := c.baseURL + "/chat/completions"
	reqBody := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
		Options:  options,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		// Apply backoff delay after first attempt
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.do(sharedStreamingClient, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
			resp.Body.Close()
			respErr := handleErrorResponse(resp, body)
			if isRetryable(respErr) {
				lastErr = respErr
				continue
			}
			return nil, respErr
		}

		return &Stream{body: resp.Body, sse: NewSSEReader(resp.Body)}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return nil, errors.New("max retries exceeded")
}
