// Package postgresql provides a PostgreSQL document store.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Store keeps documents as JSONB rows keyed by (collection, id).
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects to PostgreSQL and runs migrations.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: database, logger: logger}, nil
}

// Put upserts a document.
func (s *Store) Put(ctx context.Context, collection, id string, doc []byte) error {
	if id == "" {
		return persistence.NewDocumentError("Put", collection, id, persistence.ErrInvalidID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`,
		collection, id, doc,
	)
	if err != nil {
		return persistence.NewDocumentError("Put", collection, id, err)
	}

	return nil
}

// Get reads a document.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var doc []byte

	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = $1 AND id = $2", collection, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewDocumentError("Get", collection, id, persistence.ErrNotFound)
	}

	if err != nil {
		return nil, persistence.NewDocumentError("Get", collection, id, err)
	}

	return doc, nil
}

// Delete removes a document; missing documents are ignored.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return persistence.NewDocumentError("Delete", collection, id, err)
	}

	return nil
}

// List returns every document of a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT body FROM documents WHERE collection = $1 ORDER BY id", collection)
	if err != nil {
		return nil, persistence.NewDocumentError("List", collection, "", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	docs := make([][]byte, 0)

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, persistence.NewDocumentError("List", collection, "", err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewDocumentError("List", collection, "", err)
	}

	return docs, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
