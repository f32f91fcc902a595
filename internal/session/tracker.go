// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"log"
	"strconv"

	"github.com/google/uuid"
)

// =============================================================================
// KEY NAMESPACE
// =============================================================================

const (
	// sessionKeyPrefix namespaces the agent-to-last-session mapping.
	sessionKeyPrefix = "session:"

	// streamingPrefKey stores the user's streaming-response preference.
	streamingPrefKey = "pref:streaming"
)

// KeyValue is the durable profile-scoped store the tracker writes through.
type KeyValue interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker persists session identity per agent.
type Tracker struct {
	kv KeyValue
}

// NewTracker creates a tracker over the given key-value store.
func NewTracker(kv KeyValue) *Tracker {
	return &Tracker{kv: kv}
}

// LastSession returns the last session id used with an agent, or "" when
// none is recorded.
func (t *Tracker) LastSession(agentID string) string {
	if t.kv == nil || agentID == "" {
		return ""
	}
	v, _ := t.kv.Get(sessionKeyPrefix + agentID)
	return v
}

// SetLastSession records sessionID as the most recent session for agentID.
// Write failures are logged and swallowed; the mapping is advisory.
func (t *Tracker) SetLastSession(agentID, sessionID string) {
	if t.kv == nil || agentID == "" || sessionID == "" {
		return
	}
	if err := t.kv.Set(sessionKeyPrefix+agentID, sessionID); err != nil {
		log.Printf("session: failed to persist last session for %s: %v", agentID, err)
	}
}

// ForgetSession drops the recorded session for agentID.
func (t *Tracker) ForgetSession(agentID string) {
	if t.kv == nil || agentID == "" {
		return
	}
	if err := t.kv.Delete(sessionKeyPrefix + agentID); err != nil {
		log.Printf("session: failed to forget session for %s: %v", agentID, err)
	}
}

// Streaming returns the persisted streaming preference; the default when
// unset is true.
func (t *Tracker) Streaming() bool {
	if t.kv == nil {
		return true
	}
	v, ok := t.kv.Get(streamingPrefKey)
	if !ok {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

// SetStreaming persists the streaming preference.
func (t *Tracker) SetStreaming(enabled bool) {
	if t.kv == nil {
		return
	}
	if err := t.kv.Set(streamingPrefKey, strconv.FormatBool(enabled)); err != nil {
		log.Printf("session: failed to persist streaming preference: %v", err)
	}
}

// =============================================================================
// ID GENERATION
// =============================================================================

// NewSessionID generates a fresh opaque session id.
func NewSessionID() string {
	return "sess_" + uuid.NewString()
}
