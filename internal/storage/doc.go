// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the desktop runtime's local persistence: a
// SQLite database for agents and per-agent message history (the "bridge"
// the chat view talks to), and a small file-backed key-value store for
// profile-scoped preferences.
//
// # Key Types
//
//   - Store: SQLite-backed agent registry and message log
//   - KV: durable string key-value store with atomic writes
//
// The bridge record shape is stable: messages carry
// {id, assistant_id, role, content, created_at} and agents carry the full
// persona definition. Callers treat both stores as best-effort durable;
// reconciliation logic must keep working when either is unavailable.
package storage
