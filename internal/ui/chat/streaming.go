// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"
)

// =============================================================================
// STREAM BUFFER
// =============================================================================

// StreamBuffer batches streamed tokens so the view re-renders at a capped
// rate instead of once per token. A batch is released when either the
// token threshold is reached or enough time has passed since the last
// release.
//
// Thread-safe: tokens arrive on the stream goroutine while flushes are
// consumed on the Bubble Tea loop.
type StreamBuffer struct {
	mu        sync.Mutex
	buf       strings.Builder
	tokens    int
	lastFlush time.Time

	batchSize   int
	minInterval time.Duration
}

// NewStreamBuffer creates a buffer tuned for smooth terminal rendering:
// 15 tokens per batch, at most ~30 flushes per second.
func NewStreamBuffer() *StreamBuffer {
	return &StreamBuffer{
		batchSize:   15,
		minInterval: 33 * time.Millisecond,
	}
}

// Add appends a token and returns a batch when one is ready.
func (sb *StreamBuffer) Add(token string) (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buf.WriteString(token)
	sb.tokens++

	if sb.tokens < sb.batchSize && time.Since(sb.lastFlush) < sb.minInterval {
		return "", false
	}
	return sb.flushLocked(), true
}

// Flush drains whatever is buffered, batch-ready or not.
func (sb *StreamBuffer) Flush() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.flushLocked()
}

func (sb *StreamBuffer) flushLocked() string {
	out := sb.buf.String()
	sb.buf.Reset()
	sb.tokens = 0
	sb.lastFlush = time.Now()
	return out
}
