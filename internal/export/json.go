// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"
)

// JSONExporter renders a transcript as pretty-printed JSON.
type JSONExporter struct {
	opts *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{opts: opts}
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string { return ".json" }

type jsonTranscript struct {
	AgentID    string        `json:"agent_id"`
	AgentName  string        `json:"agent_name"`
	SessionID  string        `json:"session_id,omitempty"`
	ExportedAt time.Time     `json:"exported_at"`
	Messages   []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Export renders the transcript.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	out := jsonTranscript{
		AgentID:    t.Agent.ID,
		AgentName:  t.Agent.DisplayName(),
		SessionID:  t.SessionID,
		ExportedAt: t.ExportedAt,
		Messages:   make([]jsonMessage, 0, len(t.Messages)),
	}
	for _, msg := range t.Messages {
		jm := jsonMessage{
			ID:      msg.ID,
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if e.opts.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			ts := msg.CreatedAt
			jm.CreatedAt = &ts
		}
		out.Messages = append(out.Messages, jm)
	}
	return json.MarshalIndent(out, "", "  ")
}
