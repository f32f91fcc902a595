// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/history"
	"github.com/deeting/chatkit/internal/storage"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if m.ready && !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case agentResolvedMsg:
		return m.onResolved(msg.res)

	case resolveRetryMsg:
		return m, m.resolveCmd()

	case historyReadyMsg:
		m.ready = true
		m.refreshViewport()
		return m, nil

	case replyMsg:
		return m.onReply(msg)

	case streamChunkMsg:
		if msg.id != m.streamingID {
			return m, nil // late chunk from an abandoned turn
		}
		m.opts.Store.AppendContent(msg.id, msg.delta)
		m.refreshViewport()
		return m, m.nextStreamEvent(m.streamEvents)

	case streamDoneMsg:
		return m.onStreamDone(msg)

	case tea.KeyMsg:
		return m.onKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// BOOTSTRAP HANDLERS
// =============================================================================

func (m *Model) onResolved(res agent.Resolution) (tea.Model, tea.Cmd) {
	m.resolution = res
	switch res.State {
	case agent.StateResolved:
		return m, m.reconcileCmd()
	case agent.StateLoading:
		return m, m.retryResolveCmd()
	default: // StateNotFound
		m.notFound = true
		if m.opts.Redirect.ShouldRedirect(m.opts.Kind, res.State) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}
}

// =============================================================================
// TURN HANDLERS
// =============================================================================

func (m *Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+s":
		m.streaming = !m.streaming
		if m.opts.Tracker != nil {
			m.opts.Tracker.SetStreaming(m.streaming)
		}
		return m, nil

	case "ctrl+l":
		if !m.ready || m.busy {
			return m, nil
		}
		m.opts.Store.Clear()
		m.ready = false
		return m, tea.Batch(m.spinner.Tick, m.reconcileCmd())

	case "enter":
		return m.onSubmit()
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) onSubmit() (tea.Model, tea.Cmd) {
	if !m.ready || m.busy {
		return m, nil
	}
	content := strings.TrimSpace(m.textarea.Value())
	if content == "" {
		return m, nil
	}

	userMsg := history.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      history.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	m.opts.Store.Append(userMsg)
	m.persistTurn(userMsg)

	m.textarea.Reset()
	m.sendErr = ""
	m.busy = true
	m.refreshViewport()

	if m.streaming {
		return m, tea.Batch(m.spinner.Tick, m.startStreamCmd(content))
	}
	return m, tea.Batch(m.spinner.Tick, m.sendCmd(content))
}

func (m *Model) onReply(msg replyMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.sendErr = msg.err.Error()
		return m, nil
	}

	reply := history.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      history.RoleAssistant,
		Content:   msg.content,
		CreatedAt: time.Now(),
	}
	m.opts.Store.Append(reply)
	m.persistTurn(reply)
	m.finishTurn(msg.sessionID)
	m.refreshViewport()
	return m, nil
}

func (m *Model) onStreamDone(msg streamDoneMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.streamingID {
		return m, nil
	}
	m.busy = false
	m.streamingID = ""
	m.streamEvents = nil

	if msg.err != nil {
		m.sendErr = msg.err.Error()
		m.refreshViewport()
		return m, nil
	}

	m.persistTurn(history.Message{
		ID:        msg.id,
		Role:      history.RoleAssistant,
		Content:   msg.content,
		CreatedAt: time.Now(),
	})
	m.finishTurn(msg.sessionID)
	m.refreshViewport()
	return m, nil
}

// finishTurn records the session id the backend settled on.
func (m *Model) finishTurn(sessionID string) {
	if sessionID == "" {
		return
	}
	m.sessionID = sessionID
	if m.opts.Tracker != nil {
		m.opts.Tracker.SetLastSession(m.opts.AgentID, sessionID)
	}
}

// persistTurn mirrors a turn into the local bridge on desktop builds.
// Best-effort: the in-memory conversation is authoritative.
func (m *Model) persistTurn(msg history.Message) {
	if m.opts.Bridge == nil {
		return
	}
	_ = m.opts.Bridge.AppendMessage(&storage.StoredMessage{
		ID:          msg.ID,
		AssistantID: m.opts.AgentID,
		Role:        string(msg.Role),
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	})
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) layout() {
	headerHeight := 2
	inputHeight := m.textarea.Height() + 1
	statusHeight := 2
	vpHeight := m.height - headerHeight - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.sized {
		m.viewport = viewport.New(m.width, vpHeight)
		m.sized = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(m.width - 2)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.sized {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}
