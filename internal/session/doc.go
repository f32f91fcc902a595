// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks conversation session identity for the Deeting
// client: which session id a chat is running under, and which session was
// last used with each agent so returning to an agent resumes where the
// user left off.
//
// The agent-to-session mapping lives in the profile key-value store under
// "session:<agentID>" keys. It is advisory: a remembered session that can
// no longer be loaded simply falls through to a fresh conversation.
package session
