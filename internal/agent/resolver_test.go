// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/deeting/chatkit/internal/remote"
	"github.com/deeting/chatkit/internal/runtime"
	"github.com/deeting/chatkit/internal/storage"
)

// fakeSource is a scriptable Source.
type fakeSource struct {
	agent *Agent
	err   error
	calls int
}

func (f *fakeSource) Lookup(ctx context.Context, id string) (*Agent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.agent, nil
}

func TestResolver_Resolved(t *testing.T) {
	src := &fakeSource{agent: &Agent{ID: "a1", Name: "One"}}
	r := NewResolver(src)

	res := r.Resolve(context.Background(), "a1")
	if res.State != StateResolved {
		t.Fatalf("state = %v, want resolved", res.State)
	}
	if res.Agent == nil || res.Agent.Name != "One" {
		t.Errorf("unexpected agent %+v", res.Agent)
	}

	// Second resolve is served from cache.
	r.Resolve(context.Background(), "a1")
	if src.calls != 1 {
		t.Errorf("source queried %d times, want 1", src.calls)
	}
}

func TestResolver_NotFound(t *testing.T) {
	r := NewResolver(&fakeSource{err: ErrNotFound})

	res := r.Resolve(context.Background(), "ghost")
	if res.State != StateNotFound {
		t.Errorf("state = %v, want not-found", res.State)
	}
	if res.Agent != nil {
		t.Errorf("agent should be nil, got %+v", res.Agent)
	}
}

func TestResolver_TransientErrorStaysLoading(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	r := NewResolver(src)

	res := r.Resolve(context.Background(), "a1")
	if res.State != StateLoading {
		t.Fatalf("state = %v, want loading", res.State)
	}

	// Source recovers; the retry resolves.
	src.err = nil
	src.agent = &Agent{ID: "a1", Name: "One"}
	res = r.Resolve(context.Background(), "a1")
	if res.State != StateResolved {
		t.Errorf("state after recovery = %v, want resolved", res.State)
	}
}

func TestResolver_EmptyID(t *testing.T) {
	r := NewResolver(&fakeSource{})

	if res := r.Resolve(context.Background(), ""); res.State != StateNotFound {
		t.Errorf("state = %v, want not-found", res.State)
	}
}

func TestResolver_Invalidate(t *testing.T) {
	src := &fakeSource{agent: &Agent{ID: "a1", Name: "One"}}
	r := NewResolver(src)

	r.Resolve(context.Background(), "a1")
	r.Invalidate("a1")
	r.Resolve(context.Background(), "a1")
	if src.calls != 2 {
		t.Errorf("source queried %d times, want 2 after invalidate", src.calls)
	}
}

func TestLocalSource(t *testing.T) {
	lister := &fakeLister{records: []storage.StoredAgent{{ID: "a1", Name: "One"}}}
	src := NewLocalSource(NewRegistry(lister))

	a, err := src.Lookup(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if a.Name != "One" {
		t.Errorf("agent = %+v", a)
	}

	if _, err := src.Lookup(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLocalSource_LoadFailureIsTransient(t *testing.T) {
	lister := &fakeLister{err: errors.New("db locked")}
	src := NewLocalSource(NewRegistry(lister))

	_, err := src.Lookup(context.Background(), "a1")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("a failed registry load must not report absence")
	}
}

// fakeAPI is a scriptable AgentAPI.
type fakeAPI struct {
	payload *remote.AgentPayload
	err     error
}

func (f *fakeAPI) GetAgent(ctx context.Context, id string) (*remote.AgentPayload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func TestRemoteSource(t *testing.T) {
	src := NewRemoteSource(&fakeAPI{payload: &remote.AgentPayload{ID: "a1", Name: "One"}})

	a, err := src.Lookup(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if a.ID != "a1" {
		t.Errorf("agent = %+v", a)
	}
}

func TestRemoteSource_ErrorMapping(t *testing.T) {
	// The service's own not-found answer is definitive.
	src := NewRemoteSource(&fakeAPI{err: remote.ErrAgentNotFound})
	if _, err := src.Lookup(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	// Anything else is transient.
	src = NewRemoteSource(&fakeAPI{err: errors.New("gateway timeout")})
	_, err := src.Lookup(context.Background(), "a1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("transient failure must not map to ErrNotFound, got %v", err)
	}
}

func TestRedirectPolicy(t *testing.T) {
	policy := DefaultRedirectPolicy()

	tests := []struct {
		name  string
		kind  runtime.Kind
		state State
		want  bool
	}{
		{"desktop not-found redirects", runtime.Desktop, StateNotFound, true},
		{"web not-found stays", runtime.Web, StateNotFound, false},
		{"desktop loading never redirects", runtime.Desktop, StateLoading, false},
		{"web loading never redirects", runtime.Web, StateLoading, false},
		{"desktop resolved stays", runtime.Desktop, StateResolved, false},
		{"web resolved stays", runtime.Web, StateResolved, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldRedirect(tt.kind, tt.state); got != tt.want {
				t.Errorf("ShouldRedirect = %v, want %v", got, tt.want)
			}
		})
	}

	// Toggles are independent per runtime.
	custom := RedirectPolicy{Desktop: false, Web: true}
	if custom.ShouldRedirect(runtime.Desktop, StateNotFound) {
		t.Error("desktop redirect should be off")
	}
	if !custom.ShouldRedirect(runtime.Web, StateNotFound) {
		t.Error("web redirect should be on")
	}
	if custom.ShouldRedirect(runtime.Web, StateLoading) {
		t.Error("loading must never redirect regardless of policy")
	}
}
