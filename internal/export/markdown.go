// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/deeting/chatkit/internal/history"
)

// MarkdownExporter renders a transcript as a Markdown document.
type MarkdownExporter struct {
	opts *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{opts: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// Export renders the transcript.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Chat with %s\n\n", t.Agent.DisplayName())
	if t.SessionID != "" {
		fmt.Fprintf(&b, "Session: `%s`\n\n", t.SessionID)
	}
	if !t.ExportedAt.IsZero() {
		fmt.Fprintf(&b, "Exported: %s\n\n", t.ExportedAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("---\n\n")

	for _, msg := range t.Messages {
		label := "You"
		if msg.Role == history.RoleAssistant {
			label = t.Agent.DisplayName()
		}
		if e.opts.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "**%s** · %s\n\n", label, msg.CreatedAt.Format("15:04"))
		} else {
			fmt.Fprintf(&b, "**%s**\n\n", label)
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}

	return []byte(b.String()), nil
}
