// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import "sync"

// =============================================================================
// INITIALIZATION STATES
// =============================================================================

// InitState is the bootstrap state of one conversation key.
type InitState int

const (
	// NotStarted means no reconciliation has run for the key.
	NotStarted InitState = iota

	// InFlight means a reconciliation holds the key. The mark is taken
	// synchronously before the first slow call, so a second invocation
	// observes it and exits instead of duplicating work.
	InFlight

	// Done is terminal and sticky while the key stays active. Switching
	// conversations clears it, so a return visit reconciles afresh.
	Done
)

// String implements fmt.Stringer.
func (s InitState) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case InFlight:
		return "in-flight"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Key builds the composite conversation key. An absent session id is
// represented by the empty string.
func Key(agentID, sessionID string) string {
	return agentID + ":" + sessionID
}

// =============================================================================
// STORE
// =============================================================================

// Store holds the chat feature's shared conversation state: the visible
// message list, the per-key initialization states, and the active key.
//
// The initialization states have exactly one writer, the Reconciler. The
// message list is written by the Reconciler and by explicit user actions
// (Append, Clear); presentation code only reads.
type Store struct {
	mu         sync.Mutex
	messages   []Message
	states     map[string]InitState
	currentKey string
	loadFailed bool
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{states: make(map[string]InitState)}
}

// Activate marks key as the conversation the view is showing. Called
// synchronously when the agent or session changes, before any slow work,
// so that results from a previous conversation can be recognized as stale
// and discarded.
//
// A key change is a fresh mount: the incoming key's state is reset so the
// conversation reconciles again instead of trusting a Done mark whose
// messages were wiped on the way out.
func (s *Store) Activate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentKey == key {
		return
	}
	s.currentKey = key
	s.messages = nil
	delete(s.states, key)
}

// CurrentKey returns the active conversation key.
func (s *Store) CurrentKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentKey
}

// State returns the initialization state of a key.
func (s *Store) State(key string) InitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key]
}

// Begin attempts the NotStarted -> InFlight transition. It returns false
// when the key is already InFlight or Done, in which case the caller must
// not reconcile.
func (s *Store) Begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[key] != NotStarted {
		return false
	}
	s.states[key] = InFlight
	return true
}

// Complete finishes a reconciliation: it installs msgs as the visible
// list and moves the key to Done, clearing any load-error banner.
//
// If the active key has moved on since the reconciliation started, the
// result is stale: the message list is left untouched and the key returns
// to NotStarted so a later visit can reconcile again. Reports whether the
// result was applied.
func (s *Store) Complete(key string, msgs []Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentKey != key {
		s.states[key] = NotStarted
		return false
	}
	s.messages = msgs
	s.states[key] = Done
	s.loadFailed = false
	return true
}

// Messages returns a copy of the visible message list.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Append adds one message to the visible list. Used by send/receive
// flows, not by reconciliation.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// AppendContent appends streamed text to the message with the given id.
// No-op when the id is not in the visible list.
func (s *Store) AppendContent(id, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			s.messages[i].Content += delta
			return
		}
	}
}

// Clear drops the visible list and forgets the active key's Done mark so
// the conversation can be re-seeded.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	if s.currentKey != "" {
		delete(s.states, s.currentKey)
	}
}

// SetLoadFailed raises the session-load error banner. Reaching Done
// clears it.
func (s *Store) SetLoadFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadFailed = true
}

// LoadFailed reports whether the session-load error banner is raised.
func (s *Store) LoadFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadFailed
}
