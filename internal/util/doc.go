// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the Deeting client.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file replacement (write, fsync, rename)
//   - TruncateRunes / TruncateWidth: UTF-8 and display-width safe truncation
//
// Nothing in this package knows about agents, sessions, or the UI.
package util
