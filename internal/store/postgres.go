package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maauso/mediagen/internal/asset"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assets (
    id         TEXT PRIMARY KEY,
    media_type TEXT        NOT NULL,
    status     TEXT        NOT NULL,
    payload    JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS assets_status_idx ON assets (status);
`

// PostgresStore implements TaskStore on a single assets table. The full record
// lives in payload; status and created_at are copied out for querying.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPool initializes a pgx connection pool for databaseURL.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}

// NewPostgresStore creates a store on pool. Call EnsureSchema before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the assets table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create assets schema: %w", err)
	}
	return nil
}

// Put upserts a.
func (s *PostgresStore) Put(ctx context.Context, a asset.Asset) error {
	if a.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidID)
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal asset: %w", err)
	}

	query := `
INSERT INTO assets (id, media_type, status, payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    payload = EXCLUDED.payload,
    updated_at = NOW();
`
	_, err = s.pool.Exec(ctx, query, a.ID, string(a.MediaType), string(a.Status), payload, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert asset %s: %w", a.ID, err)
	}
	return nil
}

// Get fetches the record for id.
func (s *PostgresStore) Get(ctx context.Context, id string) (asset.Asset, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM assets WHERE id = $1;`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return asset.Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
		return asset.Asset{}, fmt.Errorf("select asset %s: %w", id, err)
	}
	return decodePayload(id, payload)
}

// GetAll returns every row.
func (s *PostgresStore) GetAll(ctx context.Context) ([]asset.Asset, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, payload FROM assets;`)
	if err != nil {
		return nil, fmt.Errorf("select assets: %w", err)
	}
	defer rows.Close()

	var out []asset.Asset
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		a, err := decodePayload(id, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}
	return out, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func decodePayload(id string, payload []byte) (asset.Asset, error) {
	var a asset.Asset
	if err := json.Unmarshal(payload, &a); err != nil {
		return asset.Asset{}, fmt.Errorf("unmarshal asset %s: %w", id, err)
	}
	return a, nil
}

// Compile-time check that PostgresStore implements TaskStore.
var _ TaskStore = (*PostgresStore)(nil)
