// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"
)

func TestStreamBuffer_BatchesByTokenCount(t *testing.T) {
	sb := NewStreamBuffer()
	sb.minInterval = time.Hour // force the token threshold to decide
	sb.lastFlush = time.Now()

	var flushed []string
	for i := 0; i < 30; i++ {
		if batch, ok := sb.Add("x"); ok {
			flushed = append(flushed, batch)
		}
	}

	if len(flushed) != 2 {
		t.Fatalf("flushes = %d, want 2 (30 tokens / batch of 15)", len(flushed))
	}
	for _, batch := range flushed {
		if len(batch) != 15 {
			t.Errorf("batch size = %d, want 15", len(batch))
		}
	}
}

func TestStreamBuffer_FlushDrainsRemainder(t *testing.T) {
	sb := NewStreamBuffer()
	sb.minInterval = time.Hour
	sb.lastFlush = time.Now()

	sb.Add("hel")
	sb.Add("lo")

	if got := sb.Flush(); got != "hello" {
		t.Errorf("Flush = %q, want hello", got)
	}
	if got := sb.Flush(); got != "" {
		t.Errorf("second Flush = %q, want empty", got)
	}
}

func TestStreamBuffer_TimeBasedFlush(t *testing.T) {
	sb := NewStreamBuffer()
	// lastFlush is the zero time, so the interval has long elapsed and
	// the very first token should flush immediately.
	batch, ok := sb.Add("hi")
	if !ok || batch != "hi" {
		t.Errorf("Add = %q, %v; want immediate flush", batch, ok)
	}
}

func TestStreamBuffer_PreservesOrder(t *testing.T) {
	sb := NewStreamBuffer()
	sb.minInterval = time.Hour
	sb.lastFlush = time.Now()

	var out strings.Builder
	for _, tok := range []string{"a", "b", "c", "d", "e"} {
		if batch, ok := sb.Add(tok); ok {
			out.WriteString(batch)
		}
	}
	out.WriteString(sb.Flush())

	if out.String() != "abcde" {
		t.Errorf("assembled = %q, want abcde", out.String())
	}
}
