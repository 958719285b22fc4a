// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the OpenAI-compatible chat completions
// client.
//
// The same client talks to any endpoint that speaks the chat
// completions protocol; the base URL is configurable. Non-streaming
// requests retry transient failures with exponential backoff. Streaming
// requests return a pull cursor that yields one raw SSE payload per
// call, which plugs directly into the prefill reconciler as its chunk
// source.
//
// CLOUD: Secure logging, retry logic, and size-limited reads
//
// # Key Types
//
//   - Client: the API client
//   - Stream: pull cursor over a streaming response
//   - APIError: typed error carrying HTTP status and API error code
//
// # Usage
//
//	client := cloud.NewClient(apiKey)
//	resp, err := client.Chat(ctx, messages, nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.GetContent())
package cloud
