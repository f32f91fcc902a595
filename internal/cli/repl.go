// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/history"
	"github.com/deeting/chatkit/internal/remote"
	"github.com/deeting/chatkit/internal/runtime"
	"github.com/deeting/chatkit/internal/session"
	"github.com/deeting/chatkit/internal/storage"
)

// resolveAttempts bounds how long the REPL waits for a loading agent
// source before giving up.
const (
	resolveAttempts = 5
	resolveDelay    = 2 * time.Second
)

// Sender runs chat turns against the backend. remote.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, req remote.ChatRequest) (*remote.ChatResponse, error)
	StreamMessage(ctx context.Context, req remote.ChatRequest, callback remote.StreamCallback) error
}

// ReplOptions wires the REPL's collaborators.
type ReplOptions struct {
	AgentID    string
	SessionID  string
	Kind       runtime.Kind
	Resolver   *agent.Resolver
	Reconciler *history.Reconciler
	Store      *history.Store
	Tracker    *session.Tracker
	Sender     Sender
	Bridge     history.Bridge
	Streaming  bool
}

// RunRepl runs the line-based chat loop until EOF or /quit.
func RunRepl(ctx context.Context, opts ReplOptions) error {
	a, err := waitForAgent(ctx, opts)
	if err != nil {
		return err
	}

	opts.Reconciler.Reconcile(ctx, a, opts.SessionID)
	printTranscript(opts.Store.Messages(), a)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()
	loadReplHistory(line)
	defer saveReplHistory(line)

	sessionID := opts.SessionID
	for {
		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case "/quit", "/exit":
			return nil
		case "/clear":
			opts.Store.Clear()
			opts.Reconciler.Reconcile(ctx, a, sessionID)
			printTranscript(opts.Store.Messages(), a)
			continue
		}

		sessionID = runTurn(ctx, opts, a, sessionID, input)
	}
}

// waitForAgent resolves the agent, retrying while the source is loading.
func waitForAgent(ctx context.Context, opts ReplOptions) (*agent.Agent, error) {
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		res := opts.Resolver.Resolve(ctx, opts.AgentID)
		switch res.State {
		case agent.StateResolved:
			return res.Agent, nil
		case agent.StateNotFound:
			return nil, fmt.Errorf("agent %q not found", opts.AgentID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resolveDelay):
		}
	}
	return nil, fmt.Errorf("agent %q is still loading; try again later", opts.AgentID)
}

// runTurn sends one message and prints the reply. Returns the session id
// the backend settled on.
func runTurn(ctx context.Context, opts ReplOptions, a *agent.Agent, sessionID, content string) string {
	userMsg := history.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      history.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	opts.Store.Append(userMsg)
	persistTurn(opts, userMsg)

	req := remote.ChatRequest{AssistantID: a.ID, SessionID: sessionID, Content: content}

	var replyText, newSession string
	var err error
	if opts.Streaming {
		err = opts.Sender.StreamMessage(ctx, req, func(chunk remote.StreamChunk) error {
			if chunk.SessionID != "" {
				newSession = chunk.SessionID
			}
			if chunk.Delta != "" {
				replyText += chunk.Delta
				fmt.Print(chunk.Delta)
			}
			return nil
		})
		fmt.Println()
	} else {
		var resp *remote.ChatResponse
		resp, err = opts.Sender.SendMessage(ctx, req)
		if err == nil {
			replyText = resp.Reply.Content
			newSession = resp.SessionID
			fmt.Println(replyText)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		return sessionID
	}

	reply := history.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      history.RoleAssistant,
		Content:   replyText,
		CreatedAt: time.Now(),
	}
	opts.Store.Append(reply)
	persistTurn(opts, reply)

	if newSession != "" {
		sessionID = newSession
		if opts.Tracker != nil {
			opts.Tracker.SetLastSession(a.ID, newSession)
		}
	}
	return sessionID
}

func persistTurn(opts ReplOptions, msg history.Message) {
	if opts.Bridge == nil {
		return
	}
	_ = opts.Bridge.AppendMessage(&storage.StoredMessage{
		ID:          msg.ID,
		AssistantID: opts.AgentID,
		Role:        string(msg.Role),
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	})
}

func printTranscript(msgs []history.Message, a *agent.Agent) {
	for _, msg := range msgs {
		label := "you"
		if msg.Role == history.RoleAssistant {
			label = a.DisplayName()
		}
		fmt.Printf("[%s] %s\n", label, msg.Content)
	}
}

// =============================================================================
// REPL HISTORY
// =============================================================================

func replHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deeting", "repl_history"), nil
}

func loadReplHistory(line *liner.State) {
	path, err := replHistoryPath()
	if err != nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	line.ReadHistory(f)
}

func saveReplHistory(line *liner.State) {
	path, err := replHistoryPath()
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
