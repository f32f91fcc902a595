// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk is one server-sent event in a streaming chat response.
type StreamChunk struct {
	SessionID string `json:"session_id,omitempty"`
	Delta     string `json:"delta,omitempty"`
	Done      bool   `json:"done,omitempty"`
}

// StreamCallback receives chunks as they arrive. Returning an error aborts
// the stream.
type StreamCallback func(chunk StreamChunk) error

// ErrStreamAborted indicates the callback cancelled the stream.
var ErrStreamAborted = errors.New("stream aborted by caller")

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamMessage runs one streaming turn, invoking callback per chunk. The
// request is bounded by ctx, not the client timeout.
func (c *Client) StreamMessage(ctx context.Context, req ChatRequest, callback StreamCallback) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streaming.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := readResponse(resp)
		return decodeError(resp.StatusCode, data)
	}

	return consumeStream(resp.Body, callback)
}

// consumeStream reads SSE events until [DONE], a done chunk, or EOF.
func consumeStream(r io.Reader, callback StreamCallback) error {
	reader := newSSEReader(r)
	for {
		data, err := reader.ReadEvent()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream read failed: %w", err)
		}

		if data == "[DONE]" {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks rather than killing the stream.
			continue
		}

		if err := callback(chunk); err != nil {
			return fmt.Errorf("%w: %v", ErrStreamAborted, err)
		}
		if chunk.Done {
			return nil
		}
	}
}

// =============================================================================
// SSE READER
// =============================================================================

// sseReader parses text/event-stream payloads. Only data fields are
// surfaced; comments and other fields are skipped.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &sseReader{scanner: scanner}
}

// ReadEvent returns the data payload of the next event, or io.EOF when the
// stream ends. Multi-line data fields are joined with newlines per the SSE
// spec.
func (r *sseReader) ReadEvent() (string, error) {
	var data []string
	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Blank line terminates an event.
		if line == "" {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue // comment
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(payload, " "))
		}
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	if len(data) > 0 {
		return strings.Join(data, "\n"), nil
	}
	return "", io.EOF
}
