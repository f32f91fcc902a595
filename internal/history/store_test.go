// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import "testing"

func TestKey(t *testing.T) {
	if got := Key("a1", "s1"); got != "a1:s1" {
		t.Errorf("Key = %q", got)
	}
	if got := Key("a1", ""); got != "a1:" {
		t.Errorf("Key with no session = %q", got)
	}
}

func TestStore_BeginOnce(t *testing.T) {
	s := NewStore()
	s.Activate("a1:s1")

	if !s.Begin("a1:s1") {
		t.Fatal("first Begin should succeed")
	}
	if s.Begin("a1:s1") {
		t.Error("second Begin while in-flight should fail")
	}
	if s.State("a1:s1") != InFlight {
		t.Errorf("state = %v, want in-flight", s.State("a1:s1"))
	}

	s.Complete("a1:s1", []Message{{ID: "m1"}})
	if s.Begin("a1:s1") {
		t.Error("Begin after Done should fail; Done is sticky")
	}
}

func TestStore_CompleteAppliesForActiveKey(t *testing.T) {
	s := NewStore()
	s.Activate("a1:s1")
	s.Begin("a1:s1")
	s.SetLoadFailed()

	if !s.Complete("a1:s1", []Message{{ID: "m1"}}) {
		t.Fatal("Complete for active key should apply")
	}
	if s.State("a1:s1") != Done {
		t.Errorf("state = %v, want done", s.State("a1:s1"))
	}
	if got := s.Messages(); len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("messages = %+v", got)
	}
	if s.LoadFailed() {
		t.Error("reaching Done must clear the load-error banner")
	}
}

func TestStore_StaleCompleteDiscarded(t *testing.T) {
	s := NewStore()
	s.Activate("a1:s1")
	s.Begin("a1:s1")

	// The view moves on before the result lands.
	s.Activate("a2:s2")
	s.Begin("a2:s2")
	s.Complete("a2:s2", []Message{{ID: "b1"}})

	if s.Complete("a1:s1", []Message{{ID: "stale"}}) {
		t.Fatal("stale Complete must not apply")
	}
	if got := s.Messages(); len(got) != 1 || got[0].ID != "b1" {
		t.Errorf("messages = %+v, stale result leaked", got)
	}
	if s.State("a2:s2") != Done {
		t.Errorf("active key state = %v, want done", s.State("a2:s2"))
	}
	// The abandoned key may be retried on a later visit.
	if s.State("a1:s1") != NotStarted {
		t.Errorf("stale key state = %v, want not-started", s.State("a1:s1"))
	}
}

func TestStore_ActivateResetsMessages(t *testing.T) {
	s := NewStore()
	s.Activate("a1:")
	s.Append(Message{ID: "m1"})

	s.Activate("a2:")
	if len(s.Messages()) != 0 {
		t.Error("switching conversations should clear the visible list")
	}

	// Re-activating the same key is a no-op.
	s.Append(Message{ID: "m2"})
	s.Activate("a2:")
	if len(s.Messages()) != 1 {
		t.Error("re-activating the active key must not clear messages")
	}
}

func TestStore_ReturnVisitCanReconcileAgain(t *testing.T) {
	s := NewStore()
	s.Activate("a1:s1")
	s.Begin("a1:s1")
	s.Complete("a1:s1", []Message{{ID: "m1"}})

	// Leave for another conversation, then come back.
	s.Activate("a2:s2")
	s.Activate("a1:s1")

	if s.State("a1:s1") != NotStarted {
		t.Errorf("state after return = %v, want not-started", s.State("a1:s1"))
	}
	if !s.Begin("a1:s1") {
		t.Fatal("Begin on a return visit should succeed; the list was wiped on the way out")
	}
	s.Complete("a1:s1", []Message{{ID: "m1"}})
	if got := s.Messages(); len(got) != 1 {
		t.Errorf("messages = %+v, want repopulated list", got)
	}
}

func TestStore_ClearForgetsDoneMark(t *testing.T) {
	s := NewStore()
	s.Activate("a1:s1")
	s.Begin("a1:s1")
	s.Complete("a1:s1", []Message{{ID: "m1"}})

	s.Clear()
	if len(s.Messages()) != 0 {
		t.Error("Clear should empty the list")
	}
	if !s.Begin("a1:s1") {
		t.Error("Begin after Clear should succeed so the chat can re-seed")
	}
}
