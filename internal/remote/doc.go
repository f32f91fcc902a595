// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package remote implements the HTTP client for the Deeting backend
// service: agent lookup, conversation history windows, and message send
// with optional SSE streaming.
//
// # Key Types
//
//   - Client: the service client (bearer auth, retry with backoff,
//     client-side rate limiting, capped response bodies)
//   - AgentPayload / HistoryEntry: wire shapes consumed by the resolver
//     and the history reconciler
//
// Error discipline matters to callers: definitive absence surfaces as
// ErrAgentNotFound / ErrSessionNotFound, while transport and server
// failures surface as ordinary errors so the caller can treat them as
// transient instead of concluding the resource is gone.
package remote
