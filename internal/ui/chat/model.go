// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/history"
	"github.com/deeting/chatkit/internal/remote"
	"github.com/deeting/chatkit/internal/runtime"
	"github.com/deeting/chatkit/internal/session"
	"github.com/deeting/chatkit/internal/ui/styles"
)

// resolveRetryDelay spaces agent-resolution retries while the source is
// still loading.
const resolveRetryDelay = 2 * time.Second

// Sender runs chat turns against the backend. remote.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, req remote.ChatRequest) (*remote.ChatResponse, error)
	StreamMessage(ctx context.Context, req remote.ChatRequest, callback remote.StreamCallback) error
}

// Options wires the chat view's collaborators.
type Options struct {
	AgentID    string
	SessionID  string
	Kind       runtime.Kind
	Resolver   *agent.Resolver
	Reconciler *history.Reconciler
	Store      *history.Store
	Tracker    *session.Tracker
	Sender     Sender
	Bridge     history.Bridge // optional; desktop persistence
	Redirect   agent.RedirectPolicy
	Markdown   bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	opts Options

	resolution agent.Resolution
	ready      bool // history reconciled, input live
	notFound   bool
	sessionID  string
	streaming  bool
	sendErr    string

	streamingID  string // id of the assistant message currently streaming
	streamEvents chan tea.Msg
	busy         bool

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	width    int
	height   int
	sized    bool
	quitting bool
}

// New creates the chat view.
func New(opts Options) *Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.CharLimit = 8192
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := &Model{
		opts:      opts,
		sessionID: opts.SessionID,
		streaming: true,
		textarea:  ta,
		spinner:   sp,
	}
	if opts.Tracker != nil {
		m.streaming = opts.Tracker.Streaming()
	}
	if opts.Markdown {
		// Renderer errors degrade to plain text.
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80)); err == nil {
			m.renderer = r
		}
	}
	return m
}

// Init starts the bootstrap pipeline.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.resolveCmd())
}

// =============================================================================
// MESSAGES
// =============================================================================

type agentResolvedMsg struct {
	res agent.Resolution
}

type resolveRetryMsg struct{}

type historyReadyMsg struct{}

type replyMsg struct {
	sessionID string
	content   string
	err       error
}

type streamChunkMsg struct {
	id    string
	delta string
}

type streamDoneMsg struct {
	id        string
	sessionID string
	content   string
	err       error
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) resolveCmd() tea.Cmd {
	return func() tea.Msg {
		return agentResolvedMsg{res: m.opts.Resolver.Resolve(context.Background(), m.opts.AgentID)}
	}
}

func (m *Model) retryResolveCmd() tea.Cmd {
	return tea.Tick(resolveRetryDelay, func(time.Time) tea.Msg {
		return resolveRetryMsg{}
	})
}

func (m *Model) reconcileCmd() tea.Cmd {
	a := m.resolution.Agent
	sessionID := m.opts.SessionID
	return func() tea.Msg {
		m.opts.Reconciler.Reconcile(context.Background(), a, sessionID)
		return historyReadyMsg{}
	}
}

func (m *Model) sendCmd(content string) tea.Cmd {
	req := remote.ChatRequest{
		AssistantID: m.opts.AgentID,
		SessionID:   m.sessionID,
		Content:     content,
	}
	return func() tea.Msg {
		resp, err := m.opts.Sender.SendMessage(context.Background(), req)
		if err != nil {
			return replyMsg{err: err}
		}
		return replyMsg{sessionID: resp.SessionID, content: resp.Reply.Content}
	}
}

// startStreamCmd launches the streaming turn on its own goroutine and
// returns the command that consumes its first event. Events carry the
// placeholder message id so chunks from an abandoned turn are dropped.
func (m *Model) startStreamCmd(content string) tea.Cmd {
	id := "msg_" + uuid.NewString()
	m.streamingID = id
	m.opts.Store.Append(history.Message{ID: id, Role: history.RoleAssistant, CreatedAt: time.Now()})

	events := make(chan tea.Msg, 64)
	m.streamEvents = events

	req := remote.ChatRequest{
		AssistantID: m.opts.AgentID,
		SessionID:   m.sessionID,
		Content:     content,
	}
	sender := m.opts.Sender

	go func() {
		buf := NewStreamBuffer()
		var sessionID, full string
		err := sender.StreamMessage(context.Background(), req, func(chunk remote.StreamChunk) error {
			if chunk.SessionID != "" {
				sessionID = chunk.SessionID
			}
			if chunk.Delta != "" {
				full += chunk.Delta
				if batch, ok := buf.Add(chunk.Delta); ok {
					events <- streamChunkMsg{id: id, delta: batch}
				}
			}
			return nil
		})
		if tail := buf.Flush(); tail != "" && err == nil {
			events <- streamChunkMsg{id: id, delta: tail}
		}
		events <- streamDoneMsg{id: id, sessionID: sessionID, content: full, err: err}
		close(events)
	}()

	return m.nextStreamEvent(events)
}

// nextStreamEvent consumes one event from a stream channel.
func (m *Model) nextStreamEvent(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}
