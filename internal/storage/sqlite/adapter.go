package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	scope TEXT NOT NULL,
	scope_id TEXT NOT NULL,
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (scope, scope_id, collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(scope, scope_id, collection);
`

// sqliteStorage implements the DocumentStore interface for SQLite
type sqliteStorage struct {
	db *sqlx.DB
}

type documentRow struct {
	ID   string `db:"id"`
	Data string `db:"data"`
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.DocumentStore, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *sqliteStorage) Get(ctx context.Context, scope storage.Scope, collection, id string) ([]byte, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `
		SELECT data FROM documents
		WHERE scope = ? AND scope_id = ? AND collection = ? AND id = ?
	`, string(scope.Kind), scope.ID, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(collection + "/" + id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return []byte(data), nil
}

func (s *sqliteStorage) Set(ctx context.Context, scope storage.Scope, collection, id string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (scope, scope_id, collection, id, data, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(scope, scope_id, collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, string(scope.Kind), scope.ID, collection, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *sqliteStorage) List(ctx context.Context, scope storage.Scope, collection string) (map[string][]byte, error) {
	var rows []documentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, data FROM documents
		WHERE scope = ? AND scope_id = ? AND collection = ?
		ORDER BY id
	`, string(scope.Kind), scope.ID, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	out := make(map[string][]byte, len(rows))
	for _, row := range rows {
		out[row.ID] = []byte(row.Data)
	}
	return out, nil
}

func (s *sqliteStorage) Delete(ctx context.Context, scope storage.Scope, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE scope = ? AND scope_id = ? AND collection = ? AND id = ?
	`, string(scope.Kind), scope.ID, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
