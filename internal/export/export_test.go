// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/history"
)

func sampleTranscript() *Transcript {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &Transcript{
		Agent:     &agent.Agent{ID: "a1", Name: "Bot"},
		SessionID: "s42",
		Messages: []history.Message{
			{ID: "s42-0", Role: history.RoleUser, Content: "hello", CreatedAt: base},
			{ID: "s42-1", Role: history.RoleAssistant, Content: "hi there", CreatedAt: base.Add(time.Second)},
		},
		ExportedAt: base.Add(time.Minute),
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	text := string(out)

	if !strings.Contains(text, "# Chat with Bot") {
		t.Error("missing title")
	}
	if !strings.Contains(text, "Session: `s42`") {
		t.Error("missing session")
	}
	if !strings.Contains(text, "**You**") || !strings.Contains(text, "**Bot**") {
		t.Errorf("missing speaker labels:\n%s", text)
	}
	if strings.Index(text, "hello") > strings.Index(text, "hi there") {
		t.Error("messages out of order")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded jsonTranscript
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.AgentID != "a1" || decoded.AgentName != "Bot" {
		t.Errorf("agent = %q/%q", decoded.AgentID, decoded.AgentName)
	}
	if len(decoded.Messages) != 2 {
		t.Fatalf("messages = %d", len(decoded.Messages))
	}
	if decoded.Messages[0].ID != "s42-0" || decoded.Messages[1].Role != "assistant" {
		t.Errorf("unexpected messages: %+v", decoded.Messages)
	}
	if decoded.Messages[0].CreatedAt == nil {
		t.Error("timestamps should be included by default")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := &Options{OutputDir: dir, IncludeTimestamps: true}

	path, err := ExportToFile(sampleTranscript(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}
	if filepath.Ext(path) != ".md" {
		t.Errorf("extension = %q", filepath.Ext(path))
	}
	if !strings.Contains(filepath.Base(path), "bot") {
		t.Errorf("filename should carry the agent name: %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file missing: %v", err)
	}
}

func TestByFormat(t *testing.T) {
	if _, err := ByFormat("markdown", nil); err != nil {
		t.Errorf("markdown: %v", err)
	}
	if _, err := ByFormat("json", nil); err != nil {
		t.Errorf("json: %v", err)
	}
	if _, err := ByFormat("pdf", nil); err == nil {
		t.Error("pdf should be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("Helper Bot 2!"); got != "helper_bot_2" {
		t.Errorf("got %q", got)
	}
	if got := sanitizeFilename("???"); got != "agent" {
		t.Errorf("got %q", got)
	}
}
