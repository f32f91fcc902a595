// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/remote"
	"github.com/deeting/chatkit/internal/runtime"
	"github.com/deeting/chatkit/internal/storage"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// GreetingID marks the synthesized first assistant message.
	GreetingID = "init"

	// backfillStep spaces synthesized timestamps when a remote history
	// window carries none. Order is preserved; wall-clock accuracy is not.
	backfillStep = time.Second
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Bridge is the local persistence surface used on desktop builds.
// storage.Store satisfies it.
type Bridge interface {
	ListMessages(assistantID string) ([]storage.StoredMessage, error)
	AppendMessage(m *storage.StoredMessage) error
}

// RemoteHistory is the backend surface used on web-style builds.
// remote.Client satisfies it.
type RemoteHistory interface {
	GetHistory(ctx context.Context, sessionID string) ([]remote.HistoryEntry, error)
}

// SessionTracker recovers and records the last session used per agent.
// session.Tracker satisfies it.
type SessionTracker interface {
	LastSession(agentID string) string
	SetLastSession(agentID, sessionID string)
}

// =============================================================================
// GREETING
// =============================================================================

// Greeting builds the synthesized first assistant message for an agent.
func Greeting(a *agent.Agent, now time.Time) Message {
	content := fmt.Sprintf("Hi, I'm %s.", a.DisplayName())
	if a.Description != "" {
		content += " " + a.Description
	} else {
		content += " How can I help you today?"
	}
	return Message{ID: GreetingID, Role: RoleAssistant, Content: content, CreatedAt: now}
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler bootstraps conversations into a Store. It is the sole writer
// of the store's initialization states.
type Reconciler struct {
	store   *Store
	tracker SessionTracker
	kind    runtime.Kind
	bridge  Bridge
	remote  RemoteHistory
	now     func() time.Time
}

// NewReconciler creates a reconciler for the given runtime kind. Wire the
// matching source with WithBridge or WithRemote; a missing source behaves
// like an empty one.
func NewReconciler(store *Store, tracker SessionTracker, kind runtime.Kind) *Reconciler {
	return &Reconciler{
		store:   store,
		tracker: tracker,
		kind:    kind,
		now:     time.Now,
	}
}

// WithBridge sets the local persistence bridge (desktop builds).
func (r *Reconciler) WithBridge(bridge Bridge) *Reconciler {
	r.bridge = bridge
	return r
}

// WithRemote sets the backend history source (web-style builds).
func (r *Reconciler) WithRemote(remote RemoteHistory) *Reconciler {
	r.remote = remote
	return r
}

// WithClock overrides the time source for tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile decides what conversation to show for an agent and an
// optional externally supplied session id, and populates the store.
//
// It runs at most once per "agentID:sessionID" key: the InFlight mark is
// taken before any slow call, Done is sticky, and a result that arrives
// after the view has moved to a different conversation is discarded. It
// never returns an error; every failure degrades to a greeting-seeded
// fresh conversation.
func (r *Reconciler) Reconcile(ctx context.Context, a *agent.Agent, sessionID string) {
	if a == nil || a.ID == "" {
		return
	}

	key := Key(a.ID, sessionID)
	r.store.Activate(key)
	if !r.store.Begin(key) {
		return
	}

	greeting := Greeting(a, r.now())

	effective := sessionID
	if effective == "" && r.tracker != nil {
		effective = r.tracker.LastSession(a.ID)
	}

	if r.kind == runtime.Desktop {
		r.loadLocal(key, a, greeting)
		return
	}
	r.loadRemote(ctx, key, a, effective, greeting)
}

// loadLocal resolves the conversation from the local bridge.
func (r *Reconciler) loadLocal(key string, a *agent.Agent, greeting Message) {
	if r.bridge == nil {
		r.store.Complete(key, []Message{greeting})
		return
	}

	records, err := r.bridge.ListMessages(a.ID)
	if err != nil {
		log.Printf("history: bridge list for %s failed, seeding greeting: %v", a.ID, err)
		r.store.Complete(key, []Message{greeting})
		return
	}

	if len(records) == 0 {
		r.seedLocal(key, a, greeting)
		return
	}

	msgs := make([]Message, 0, len(records))
	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = r.now()
		}
		msgs = append(msgs, Message{
			ID:        rec.ID,
			Role:      normalizeRole(rec.Role),
			Content:   rec.Content,
			CreatedAt: createdAt,
		})
	}
	r.store.Complete(key, msgs)
}

// seedLocal starts a fresh local conversation with the greeting. The
// persistence attempt is best-effort: the in-memory greeting is correct
// either way, so a write failure is logged and swallowed. The stored row
// gets a bridge-generated id; the fixed greeting id is per conversation,
// not unique across agents, so it cannot serve as the record key.
func (r *Reconciler) seedLocal(key string, a *agent.Agent, greeting Message) {
	err := r.bridge.AppendMessage(&storage.StoredMessage{
		AssistantID: a.ID,
		Role:        string(greeting.Role),
		Content:     greeting.Content,
		CreatedAt:   greeting.CreatedAt,
	})
	if err != nil {
		log.Printf("history: failed to persist greeting for %s: %v", a.ID, err)
	}
	r.store.Complete(key, []Message{greeting})
}

// loadRemote resolves the conversation from the backend history window.
func (r *Reconciler) loadRemote(ctx context.Context, key string, a *agent.Agent, sessionID string, greeting Message) {
	if sessionID == "" || r.remote == nil {
		r.store.Complete(key, []Message{greeting})
		return
	}

	entries, err := r.remote.GetHistory(ctx, sessionID)
	if err != nil {
		log.Printf("history: fetch for session %s failed, seeding greeting: %v", sessionID, err)
		r.store.Complete(key, []Message{greeting})
		return
	}

	msgs := mapRemoteEntries(sessionID, entries, r.now())
	if len(msgs) == 0 {
		r.store.Complete(key, []Message{greeting})
		return
	}

	if r.tracker != nil {
		r.tracker.SetLastSession(a.ID, sessionID)
	}
	r.store.Complete(key, msgs)
}

// mapRemoteEntries converts a remote history window into visible
// messages. Ids are "<sessionID>-<turn index>", falling back to the
// entry's array position when the payload carries no turn index.
// Timestamps are taken verbatim when present; otherwise they are
// synthesized by counting backward from now in fixed steps, which keeps
// relative order without claiming wall-clock accuracy.
func mapRemoteEntries(sessionID string, entries []remote.HistoryEntry, now time.Time) []Message {
	msgs := make([]Message, 0, len(entries))
	for i, entry := range entries {
		role, ok := qualifyingRole(entry.Role)
		if !ok {
			continue
		}
		idx := i
		if entry.TurnIndex != nil {
			idx = *entry.TurnIndex
		}
		msg := Message{
			ID:      fmt.Sprintf("%s-%d", sessionID, idx),
			Role:    role,
			Content: entry.Content,
		}
		if entry.CreatedAt != nil {
			msg.CreatedAt = *entry.CreatedAt
		}
		msgs = append(msgs, msg)
	}

	// Backfill synthesized timestamps for entries that had none.
	for i := range msgs {
		if msgs[i].CreatedAt.IsZero() {
			msgs[i].CreatedAt = now.Add(-time.Duration(len(msgs)-1-i) * backfillStep)
		}
	}
	return msgs
}
