// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrAgentNotFound is returned when no agent exists for an id.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("store is closed")
)

// =============================================================================
// RECORD TYPES
// =============================================================================

// StoredAgent is a persisted assistant persona.
type StoredAgent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt"`
	Tags         []string  `json:"tags,omitempty"`
	IconID       string    `json:"icon_id,omitempty"`
	Color        string    `json:"color,omitempty"`
	OwnerUserID  string    `json:"owner_user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StoredMessage is one persisted conversation turn. The field set matches
// the bridge record shape consumed by the chat view.
type StoredMessage struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistant_id"`
	Role        string    `json:"role"` // "user" or "assistant"
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed local bridge.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database path (~/.deeting/deeting.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deeting", "deeting.db"), nil
}

// Open opens (creating if necessary) the local store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initSchema creates the tables if they do not exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		system_prompt  TEXT NOT NULL DEFAULT '',
		tags           TEXT NOT NULL DEFAULT '[]',
		icon_id        TEXT NOT NULL DEFAULT '',
		color          TEXT NOT NULL DEFAULT '',
		owner_user_id  TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id            TEXT PRIMARY KEY,
		assistant_id  TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
		role          TEXT NOT NULL,
		content       TEXT NOT NULL,
		created_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_assistant
		ON messages(assistant_id, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// AGENT OPERATIONS
// =============================================================================

// SaveAgent inserts or replaces an agent record. A missing ID or CreatedAt
// is filled in.
func (s *Store) SaveAgent(a *StoredAgent) error {
	if s.db == nil {
		return ErrClosed
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO agents
			(id, name, description, system_prompt, tags, icon_id, color, owner_user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Description, a.SystemPrompt, string(tags),
		a.IconID, a.Color, a.OwnerUserID, a.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

// GetAgent loads one agent by id. Returns ErrAgentNotFound if absent.
func (s *Store) GetAgent(id string) (*StoredAgent, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	row := s.db.QueryRow(`
		SELECT id, name, description, system_prompt, tags, icon_id, color, owner_user_id, created_at
		FROM agents WHERE id = ?`, id)

	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	return a, err
}

// ListAgents returns all agents, oldest first.
func (s *Store) ListAgents() ([]StoredAgent, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.Query(`
		SELECT id, name, description, system_prompt, tags, icon_id, color, owner_user_id, created_at
		FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []StoredAgent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

// DeleteAgent removes an agent and, via the foreign key, its messages.
func (s *Store) DeleteAgent(id string) error {
	if s.db == nil {
		return ErrClosed
	}
	res, err := s.db.Exec(`DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (*StoredAgent, error) {
	var a StoredAgent
	var tags string
	var createdAt int64
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.SystemPrompt, &tags,
		&a.IconID, &a.Color, &a.OwnerUserID, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		a.Tags = nil // tolerate old or hand-edited rows
	}
	a.CreatedAt = time.UnixMilli(createdAt)
	return &a, nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendMessage persists one message record. A missing ID or CreatedAt is
// filled in.
func (s *Store) AppendMessage(m *StoredMessage) error {
	if s.db == nil {
		return ErrClosed
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, assistant_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.AssistantID, m.Role, m.Content, m.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListMessages returns all messages for an assistant in insertion order.
// An unknown assistant id yields an empty list, not an error; the
// reconciler treats both the same way.
func (s *Store) ListMessages(assistantID string) ([]StoredMessage, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.Query(`
		SELECT id, assistant_id, role, content, created_at
		FROM messages WHERE assistant_id = ?
		ORDER BY created_at, id`, assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []StoredMessage
	for rows.Next() {
		var m StoredMessage
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.AssistantID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = time.UnixMilli(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ClearMessages deletes all messages for an assistant.
func (s *Store) ClearMessages(assistantID string) error {
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.Exec(`DELETE FROM messages WHERE assistant_id = ?`, assistantID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}
