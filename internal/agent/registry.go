// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/deeting/chatkit/internal/storage"
)

// Lister supplies the local agent records the registry loads from.
type Lister interface {
	ListAgents() ([]storage.StoredAgent, error)
}

// Registry is the in-memory agent catalog for desktop builds. Load is
// idempotent: the first successful load populates the catalog and every
// later call is a no-op, so callers may invoke it on every navigation.
type Registry struct {
	source Lister

	mu     sync.Mutex
	agents map[string]*Agent
	loaded bool
}

// NewRegistry creates an empty registry over the given record source.
func NewRegistry(source Lister) *Registry {
	return &Registry{
		source: source,
		agents: make(map[string]*Agent),
	}
}

// Load populates the registry from the source. Safe for concurrent use;
// a failed load leaves the registry unloaded so the next call retries.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := r.source.ListAgents()
	if err != nil {
		return err
	}

	for _, rec := range records {
		r.agents[rec.ID] = FromStored(rec)
	}
	r.loaded = true
	log.Printf("agent: registry loaded %d agents", len(records))
	return nil
}

// Loaded reports whether the initial load has completed.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Get returns the agent with the given id, if the registry holds one.
func (r *Registry) Get(id string) (*Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	return a, ok
}

// All returns the loaded agents sorted by name.
func (r *Registry) All() []*Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Put inserts or replaces an agent in the catalog. Used when the user
// creates or edits an agent after the initial load.
func (r *Registry) Put(a *Agent) {
	if a == nil || a.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
}
