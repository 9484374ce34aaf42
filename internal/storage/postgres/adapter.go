package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	scope VARCHAR(16) NOT NULL,
	scope_id VARCHAR(255) NOT NULL,
	collection VARCHAR(64) NOT NULL,
	id VARCHAR(255) NOT NULL,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (scope, scope_id, collection, id)
)`

// postgresStorage implements the DocumentStore interface for PostgreSQL
type postgresStorage struct {
	db *sqlx.DB
}

type documentRow struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.DocumentStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *postgresStorage) Get(ctx context.Context, scope storage.Scope, collection, id string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `
		SELECT data FROM documents
		WHERE scope = $1 AND scope_id = $2 AND collection = $3 AND id = $4
	`, string(scope.Kind), scope.ID, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(collection + "/" + id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return data, nil
}

func (s *postgresStorage) Set(ctx context.Context, scope storage.Scope, collection, id string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (scope, scope_id, collection, id, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (scope, scope_id, collection, id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()
	`, string(scope.Kind), scope.ID, collection, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *postgresStorage) List(ctx context.Context, scope storage.Scope, collection string) (map[string][]byte, error) {
	var rows []documentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, data FROM documents
		WHERE scope = $1 AND scope_id = $2 AND collection = $3
		ORDER BY id
	`, string(scope.Kind), scope.ID, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	out := make(map[string][]byte, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Data
	}
	return out, nil
}

func (s *postgresStorage) Delete(ctx context.Context, scope storage.Scope, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE scope = $1 AND scope_id = $2 AND collection = $3 AND id = $4
	`, string(scope.Kind), scope.ID, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
