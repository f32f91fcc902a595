// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the Deeting TUI.
//
// The view is a Bubble Tea model that drives the bootstrap pipeline on
// mount: resolve the agent, reconcile history into the shared store, then
// accept input. Agent resolution retries while the answer is unknown and
// only a definitive not-found can bounce the user out, per the configured
// redirect policy.
//
// Responses stream through a batching buffer so rendering stays at a
// sane frame rate, and every streamed chunk is tagged with the message id
// it belongs to so late chunks from an abandoned turn are dropped.
package chat
