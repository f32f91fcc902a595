// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to portable formats.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/history"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is a conversation ready for export.
type Transcript struct {
	Agent      *agent.Agent
	SessionID  string
	Messages   []history.Message
	ExportedAt time.Time
}

// =============================================================================
// EXPORTER INTERFACE
// =============================================================================

// Exporter converts a transcript to a target format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)
	FileExtension() string
}

// Options configures export output.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeTimestamps: true,
	}
}

// ByFormat returns the exporter for a format name.
func ByFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want markdown or json)", format)
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// ExportToFile writes the transcript and returns the output path.
func ExportToFile(t *Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	stamp := t.ExportedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	filename := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(t.Agent.DisplayName()),
		stamp.Format("20060102_150405"),
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(opts.OutputDir, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// sanitizeFilename reduces a display name to a safe filename fragment.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "agent"
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return out
}
