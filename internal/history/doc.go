// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history decides what conversation to show when a chat view
// opens: resume a persisted conversation, seed a fresh one with a
// greeting, or do nothing because the decision was already made.
//
// # Architecture
//
// Store is the shared state container: the visible message list, the
// per-conversation initialization states, and the currently active
// conversation key. It has a single-writer discipline: the Reconciler
// owns the initialization states, and only the Reconciler and explicit
// user actions touch the message list.
//
// Reconciler runs the bootstrap state machine, keyed by
// "agentID:sessionID". Each key moves NotStarted -> InFlight -> Done
// exactly once; Done is sticky, the InFlight mark is taken before any
// slow call so overlapping invocations bail out early, and results that
// arrive after the user has navigated to a different conversation are
// discarded by comparing against the active key.
//
// Every failure mode (unreachable bridge, rejected fetch, stale session
// id) degrades to a fresh conversation seeded with the agent's greeting.
// The reconciler never surfaces an error to the caller and never leaves a
// key stuck in InFlight.
package history
