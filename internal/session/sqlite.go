package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    model_id TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
    text TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation_id ON turns(conversation_id);
`

// SQLiteStore persists conversations in a local sqlite database. Drop-in
// replacement for MemoryStore when turn history should survive restarts.
// Note the overall system still promises only best-effort persistence.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// initializes the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

var _ Store = (*SQLiteStore)(nil)

// StartTurn implements Store.
func (s *SQLiteStore) StartTurn(ctx context.Context, id, modelID, userText string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin turn: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Recreates unknown ids empty, same as the in-memory store.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, model_id, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET model_id = excluded.model_id, updated_at = excluded.updated_at`,
		id, modelID, now, now,
	); err != nil {
		return "", fmt.Errorf("upsert conversation %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO turns (conversation_id, role, text, created_at) VALUES (?, ?, ?, ?)",
		id, RoleUser, userText, now,
	); err != nil {
		return "", fmt.Errorf("append user turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit turn: %w", err)
	}
	return id, nil
}

// AppendAssistantTurn implements Store.
func (s *SQLiteStore) AppendAssistantTurn(ctx context.Context, id, finalText string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM conversations WHERE id = ?", id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check conversation %s: %w", id, err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	now := time.Now()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, id,
	); err != nil {
		return fmt.Errorf("touch conversation %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO turns (conversation_id, role, text, created_at) VALUES (?, ?, ?, ?)",
		id, RoleAssistant, finalText, now,
	); err != nil {
		return fmt.Errorf("append assistant turn: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Conversation, error) {
	c := &Conversation{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT model_id, created_at, updated_at FROM conversations WHERE id = ?", id,
	).Scan(&c.ModelID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, text FROM turns WHERE conversation_id = ? ORDER BY id", id,
	)
	if err != nil {
		return nil, fmt.Errorf("load turns for %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Text); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		c.Turns = append(c.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return c, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
