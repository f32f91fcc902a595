// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"strings"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one visible turn in a conversation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// normalizeRole folds arbitrary stored role strings onto the two visible
// roles. Anything that is not recognizably an assistant turn renders as a
// user turn.
func normalizeRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "assistant", "bot", "ai":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// qualifyingRole reports whether a remote history entry belongs in the
// visible list, and its normalized role. System and tool turns are not
// rendered.
func qualifyingRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user":
		return RoleUser, true
	case "assistant":
		return RoleAssistant, true
	default:
		return "", false
	}
}
