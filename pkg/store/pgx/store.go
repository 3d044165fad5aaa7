// Package pgx keeps saved queries and results in PostgreSQL.
package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
	"github.com/OFFIS-RIT/argmap/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// Store implements store.Store on the saved_queries and saved_results
// tables. Run Migrate before first use.
type Store struct {
	conn       pgxIConn
	hashLength int
	now        func() time.Time
}

var _ store.Store = (*Store)(nil)

type StoreOption func(*Store)

func WithHashLength(n int) StoreOption {
	return func(s *Store) {
		s.hashLength = store.ClampHashLength(n)
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store using an existing connection or pool.
func NewStore(conn pgxIConn, opts ...StoreOption) *Store {
	s := &Store{
		conn:       conn,
		hashLength: store.DefaultHashLength,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

const upsertQuery = `
INSERT INTO saved_queries (hash, text, temperature, model, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (hash) DO UPDATE
SET text = EXCLUDED.text,
    temperature = EXCLUDED.temperature,
    model = EXCLUDED.model,
    created_at = EXCLUDED.created_at`

func (s *Store) SaveQuery(ctx context.Context, q store.Query) (string, error) {
	hash, err := store.HashQuery(q, s.hashLength)
	if err != nil {
		return "", fmt.Errorf("failed to hash query: %w", err)
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = s.now().UTC()
	}

	// The hash covers the text as given; only the stored copy is sanitized.
	if _, err := s.conn.Exec(ctx, upsertQuery, hash, sanitizeText(q.Text), q.Temperature, q.Model, q.Timestamp); err != nil {
		return "", fmt.Errorf("failed to save query %s: %w", hash, err)
	}
	return hash, nil
}

const upsertResult = `
INSERT INTO saved_results (hash, response, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (hash) DO UPDATE
SET response = EXCLUDED.response,
    updated_at = EXCLUDED.updated_at`

func (s *Store) SaveResult(ctx context.Context, hash string, r argmap.Response) error {
	if !store.ValidHash(hash) {
		return fmt.Errorf("hash %q: %w", hash, store.ErrNotFound)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if _, err := s.conn.Exec(ctx, upsertResult, hash, data); err != nil {
		return fmt.Errorf("failed to save result %s: %w", hash, err)
	}
	return nil
}

const listQueries = `
SELECT hash, text, temperature, model, created_at
FROM saved_queries
ORDER BY created_at DESC, hash`

func (s *Store) ListQueries(ctx context.Context) ([]store.QueryPreview, error) {
	rows, err := s.conn.Query(ctx, listQueries)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	previews := make([]store.QueryPreview, 0)
	for rows.Next() {
		var (
			hash string
			q    store.Query
		)
		if err := rows.Scan(&hash, &q.Text, &q.Temperature, &q.Model, &q.Timestamp); err != nil {
			logger.Warn("Skipping unreadable query record", "err", err)
			continue
		}
		previews = append(previews, store.NewPreview(hash, q))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	return previews, nil
}

func (s *Store) GetQuery(ctx context.Context, hash string) (*store.Query, error) {
	if !store.ValidHash(hash) {
		return nil, fmt.Errorf("query %q: %w", hash, store.ErrNotFound)
	}

	var q store.Query
	err := s.conn.QueryRow(ctx,
		`SELECT text, temperature, model, created_at FROM saved_queries WHERE hash = $1`,
		hash,
	).Scan(&q.Text, &q.Temperature, &q.Model, &q.Timestamp)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", hash, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load query %s: %w", hash, err)
	}
	return &q, nil
}

func (s *Store) GetResult(ctx context.Context, hash string) (*argmap.Response, error) {
	if !store.ValidHash(hash) {
		return nil, fmt.Errorf("result %q: %w", hash, store.ErrNotFound)
	}

	var data []byte
	err := s.conn.QueryRow(ctx,
		`SELECT response FROM saved_results WHERE hash = $1`,
		hash,
	).Scan(&data)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", hash, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result %s: %w", hash, err)
	}

	var r argmap.Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", hash, err)
	}
	return &r, nil
}
