// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/history"
	"github.com/deeting/chatkit/internal/runtime"
	"github.com/deeting/chatkit/internal/ui/styles"
	"github.com/deeting/chatkit/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.notFound {
		return styles.ErrorBanner.Render(fmt.Sprintf("Agent %q was not found.", m.opts.AgentID)) +
			"\n" + styles.Hint.Render("Press esc to leave.")
	}
	if !m.ready {
		return m.spinner.View() + " " + styles.Hint.Render(m.loadingLabel())
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render(m.headerLabel()))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.sendErr != "" {
		b.WriteString(styles.ErrorBanner.Render("Send failed: " + util.TruncateRunes(m.sendErr, 120)))
		b.WriteString("\n")
	}
	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render(m.statusLabel()))
	return b.String()
}

func (m *Model) loadingLabel() string {
	if m.resolution.State == agent.StateLoading || m.resolution.Agent == nil {
		return "Looking up agent..."
	}
	return "Loading conversation..."
}

func (m *Model) headerLabel() string {
	name := m.opts.AgentID
	if m.resolution.Agent != nil {
		name = m.resolution.Agent.DisplayName()
	}
	mode := "web"
	if m.opts.Kind == runtime.Desktop {
		mode = "desktop"
	}
	return fmt.Sprintf("%s · %s", name, mode)
}

func (m *Model) statusLabel() string {
	stream := "off"
	if m.streaming {
		stream = "on"
	}
	sess := m.sessionID
	if sess == "" {
		sess = "new"
	}
	state := ""
	if m.busy {
		state = m.spinner.View() + " thinking · "
	}
	return fmt.Sprintf("%ssession %s · stream %s · enter send · ^s stream · ^l clear · esc quit",
		state, util.TruncateRunes(sess, 16), stream)
}

// renderMessages renders the visible conversation for the viewport.
func (m *Model) renderMessages() string {
	msgs := m.opts.Store.Messages()
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m *Model) renderMessage(msg history.Message) string {
	label := styles.UserLabel.Render("you")
	if msg.Role == history.RoleAssistant {
		name := "assistant"
		if m.resolution.Agent != nil {
			name = m.resolution.Agent.DisplayName()
		}
		label = styles.AssistantLabel.Render(name)
	}
	ts := styles.Timestamp.Render(msg.CreatedAt.Format("15:04"))

	body := msg.Content
	if msg.Role == history.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(body); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	} else {
		body = styles.MessageBody.Render(body)
	}

	return fmt.Sprintf("%s %s\n%s\n", label, ts, body)
}
