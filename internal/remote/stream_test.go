// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestSSEReader(t *testing.T) {
	input := ": keepalive\n" +
		"data: {\"delta\":\"a\"}\n\n" +
		"data: line1\n" +
		"data: line2\n\n" +
		"data: [DONE]\n\n"
	reader := newSSEReader(strings.NewReader(input))

	events := []string{}
	for {
		ev, err := reader.ReadEvent()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadEvent: %v", err)
		}
		events = append(events, ev)
	}

	want := []string{`{"delta":"a"}`, "line1\nline2", "[DONE]"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestStreamMessage(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"session_id\":\"s9\",\"delta\":\"Hel\"}\n\n")
		io.WriteString(w, "data: {\"delta\":\"lo\"}\n\n")
		io.WriteString(w, "data: not-json\n\n") // must be skipped
		io.WriteString(w, "data: {\"done\":true}\n\n")
	}))

	var text strings.Builder
	sessionID := ""
	err := client.StreamMessage(context.Background(), ChatRequest{AssistantID: "a1", Content: "hi"}, func(chunk StreamChunk) error {
		if chunk.SessionID != "" {
			sessionID = chunk.SessionID
		}
		text.WriteString(chunk.Delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	if text.String() != "Hello" {
		t.Errorf("assembled text = %q, want Hello", text.String())
	}
	if sessionID != "s9" {
		t.Errorf("sessionID = %q, want s9", sessionID)
	}
}

func TestStreamMessage_CallbackAborts(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"delta\":\"x\"}\n\n")
		io.WriteString(w, "data: {\"delta\":\"y\"}\n\n")
	}))

	calls := 0
	err := client.StreamMessage(context.Background(), ChatRequest{}, func(chunk StreamChunk) error {
		calls++
		return errors.New("stop")
	})
	if !errors.Is(err, ErrStreamAborted) {
		t.Errorf("err = %v, want ErrStreamAborted", err)
	}
	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
}

func TestStreamMessage_HTTPError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))

	err := client.StreamMessage(context.Background(), ChatRequest{}, func(StreamChunk) error { return nil })
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}
