// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"github.com/deeting/chatkit/internal/remote"
	"github.com/deeting/chatkit/internal/storage"
)

// Agent is one assistant definition, independent of where it came from.
type Agent struct {
	ID           string
	Name         string
	Description  string
	SystemPrompt string
	Tags         []string
	IconID       string
	Color        string
	OwnerUserID  string
}

// FromStored converts a local bridge record.
func FromStored(rec storage.StoredAgent) *Agent {
	return &Agent{
		ID:           rec.ID,
		Name:         rec.Name,
		Description:  rec.Description,
		SystemPrompt: rec.SystemPrompt,
		Tags:         rec.Tags,
		IconID:       rec.IconID,
		Color:        rec.Color,
		OwnerUserID:  rec.OwnerUserID,
	}
}

// FromPayload converts a backend API record.
func FromPayload(p remote.AgentPayload) *Agent {
	return &Agent{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		SystemPrompt: p.SystemPrompt,
		Tags:         p.Tags,
		IconID:       p.IconID,
		Color:        p.Color,
		OwnerUserID:  p.OwnerUserID,
	}
}

// DisplayName returns the agent's name, falling back to its id.
func (a *Agent) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
