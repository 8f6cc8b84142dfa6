package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Backend = (*PostgresBackend)(nil)

const postgresSchema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	PRIMARY KEY (collection, id)
)`

// PostgresBackend stores all collections in one PostgreSQL table with a
// JSONB column per document.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to dsn, verifies the connection and creates the
// documents table if missing.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres dsn: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("store: create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: postgres schema: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Name() string { return "postgres" }

func (p *PostgresBackend) wrap(op, collection, id string, err error) error {
	return &BackendError{Backend: "postgres", Op: op, Collection: collection, ID: id, Err: err}
}

func (p *PostgresBackend) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var raw string
	err := p.pool.QueryRow(ctx,
		"SELECT data::text FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, p.wrap("get", collection, id, err)
	}

	fields, err := decodeDocument([]byte(raw))
	if err != nil {
		return nil, p.wrap("get", collection, id, err)
	}
	return fields, nil
}

func (p *PostgresBackend) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := encodeDocument(fields)
	if err != nil {
		return p.wrap("put", collection, id, err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`,
		collection, id, string(data),
	)
	if err != nil {
		return p.wrap("put", collection, id, err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, collection, id string) error {
	_, err := p.pool.Exec(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	)
	if err != nil {
		return p.wrap("delete", collection, id, err)
	}
	return nil
}

func (p *PostgresBackend) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, data::text FROM documents WHERE collection = $1 ORDER BY id COLLATE "C"`,
		collection,
	)
	if err != nil {
		return nil, p.wrap("list", collection, "", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, p.wrap("list", collection, "", err)
		}
		fields, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, p.wrap("list", collection, id, err)
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, p.wrap("list", collection, "", err)
	}
	return docs, nil
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
