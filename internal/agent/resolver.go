// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/deeting/chatkit/internal/remote"
	"github.com/deeting/chatkit/internal/runtime"
)

// =============================================================================
// RESOLUTION STATES
// =============================================================================

// State is the observable outcome of one resolution attempt.
type State int

const (
	// StateLoading means the answer is not yet known. Transient failures
	// keep the resolution here; they never imply absence.
	StateLoading State = iota

	// StateResolved means a definition is in hand.
	StateResolved

	// StateNotFound means the source definitively reported the agent absent.
	StateNotFound
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateResolved:
		return "resolved"
	case StateNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Resolution is the result of resolving one agent id. Agent is non-nil
// exactly when State is StateResolved.
type Resolution struct {
	State State
	Agent *Agent
}

// ErrNotFound is returned by sources to report definitive absence.
var ErrNotFound = errors.New("agent not found")

// =============================================================================
// SOURCES
// =============================================================================

// Source yields agent definitions by id. Definitive absence is reported as
// ErrNotFound; any other error is treated as transient.
type Source interface {
	Lookup(ctx context.Context, id string) (*Agent, error)
}

// LocalSource serves lookups from the desktop registry, loading it on
// first use.
type LocalSource struct {
	registry *Registry
}

// NewLocalSource creates a source over the given registry.
func NewLocalSource(registry *Registry) *LocalSource {
	return &LocalSource{registry: registry}
}

// Lookup implements Source. A registry load failure is transient; absence
// is only reported once a load has succeeded.
func (s *LocalSource) Lookup(ctx context.Context, id string) (*Agent, error) {
	if err := s.registry.Load(ctx); err != nil {
		return nil, err
	}
	a, ok := s.registry.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// AgentAPI is the slice of the backend client the remote source needs.
type AgentAPI interface {
	GetAgent(ctx context.Context, id string) (*remote.AgentPayload, error)
}

// RemoteSource serves lookups from the backend API.
type RemoteSource struct {
	api AgentAPI
}

// NewRemoteSource creates a source over the given backend client.
func NewRemoteSource(api AgentAPI) *RemoteSource {
	return &RemoteSource{api: api}
}

// Lookup implements Source. Only the service's own not-found answer maps
// to ErrNotFound; network and server failures stay transient.
func (s *RemoteSource) Lookup(ctx context.Context, id string) (*Agent, error) {
	payload, err := s.api.GetAgent(ctx, id)
	if err != nil {
		if errors.Is(err, remote.ErrAgentNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return FromPayload(*payload), nil
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver resolves agent ids through a source, caching definitions so a
// chat view can re-resolve on every navigation without refetching.
type Resolver struct {
	source Source

	mu    sync.Mutex
	cache map[string]*Agent
}

// NewResolver creates a resolver over the given source.
func NewResolver(source Source) *Resolver {
	return &Resolver{
		source: source,
		cache:  make(map[string]*Agent),
	}
}

// Resolve resolves one agent id. It never returns an error: transient
// failures surface as StateLoading so the caller can retry, and only a
// definitive answer from the source produces StateNotFound.
func (r *Resolver) Resolve(ctx context.Context, id string) Resolution {
	if id == "" {
		return Resolution{State: StateNotFound}
	}

	r.mu.Lock()
	if a, ok := r.cache[id]; ok {
		r.mu.Unlock()
		return Resolution{State: StateResolved, Agent: a}
	}
	r.mu.Unlock()

	a, err := r.source.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Resolution{State: StateNotFound}
		}
		log.Printf("agent: lookup %s failed, staying in loading state: %v", id, err)
		return Resolution{State: StateLoading}
	}

	r.mu.Lock()
	r.cache[id] = a
	r.mu.Unlock()
	return Resolution{State: StateResolved, Agent: a}
}

// Invalidate drops a cached definition so the next Resolve refetches it.
func (r *Resolver) Invalidate(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

// =============================================================================
// REDIRECT POLICY
// =============================================================================

// RedirectPolicy controls whether landing on a missing agent bounces the
// user back to the agent list. The toggles are per runtime because desktop
// builds own their registry (absence there is authoritative) while
// web-style builds may see agents appear after login or sync.
type RedirectPolicy struct {
	Desktop bool
	Web     bool
}

// DefaultRedirectPolicy redirects on desktop and stays put on web.
func DefaultRedirectPolicy() RedirectPolicy {
	return RedirectPolicy{Desktop: true, Web: false}
}

// ShouldRedirect reports whether the client should leave the chat view.
// Only a definitive NotFound can redirect; Loading never does.
func (p RedirectPolicy) ShouldRedirect(kind runtime.Kind, state State) bool {
	if state != StateNotFound {
		return false
	}
	if kind == runtime.Desktop {
		return p.Desktop
	}
	return p.Web
}
