// Package base implements store.Store on top of a flat key/value Bucket.
//
// Records are JSON documents stored as "queries/{hash}.json" and
// "results/{hash}.json". Any Bucket that can put, get and list keys can
// back a store: the local filesystem, S3 or an in-memory map in tests.
package base

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
	"github.com/OFFIS-RIT/argmap/pkg/store"
)

const (
	QueriesDir = "queries"
	ResultsDir = "results"
)

// Bucket is a flat namespace of binary objects addressed by slash-separated
// keys. Get must return an error wrapping store.ErrNotFound for missing
// keys. List returns the keys directly below prefix.
type Bucket interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// BlobStore implements store.Store on a Bucket.
type BlobStore struct {
	bucket     Bucket
	hashLength int
	now        func() time.Time
}

var _ store.Store = (*BlobStore)(nil)

type BlobStoreOption func(*BlobStore)

// WithHashLength sets the number of hex characters of the query hash.
func WithHashLength(n int) BlobStoreOption {
	return func(s *BlobStore) {
		s.hashLength = store.ClampHashLength(n)
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) BlobStoreOption {
	return func(s *BlobStore) {
		s.now = now
	}
}

func NewBlobStore(bucket Bucket, opts ...BlobStoreOption) *BlobStore {
	s := &BlobStore{
		bucket:     bucket,
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

func queryKey(hash string) string  { return path.Join(QueriesDir, hash+".json") }
func resultKey(hash string) string { return path.Join(ResultsDir, hash+".json") }

func checkHash(hash string) error {
	if !store.ValidHash(hash) {
		return fmt.Errorf("hash %q: %w", hash, store.ErrNotFound)
	}
	return nil
}

func (s *BlobStore) SaveQuery(ctx context.Context, q store.Query) (string, error) {
	hash, err := store.HashQuery(q, s.hashLength)
	if err != nil {
		return "", fmt.Errorf("failed to hash query: %w", err)
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = s.now().UTC()
	}

	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}
	if err := s.bucket.Put(ctx, queryKey(hash), data); err != nil {
		return "", fmt.Errorf("failed to save query %s: %w", hash, err)
	}
	return hash, nil
}

func (s *BlobStore) SaveResult(ctx context.Context, hash string, r argmap.Response) error {
	if err := checkHash(hash); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := s.bucket.Put(ctx, resultKey(hash), data); err != nil {
		return fmt.Errorf("failed to save result %s: %w", hash, err)
	}
	return nil
}

// ListQueries skips records that cannot be read or decoded.
func (s *BlobStore) ListQueries(ctx context.Context) ([]store.QueryPreview, error) {
	keys, err := s.bucket.List(ctx, QueriesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}

	previews := make([]store.QueryPreview, 0, len(keys))
	for _, key := range keys {
		name := path.Base(key)
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		hash := strings.TrimSuffix(name, ".json")

		data, err := s.bucket.Get(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Skipping unreadable query record", "key", key, "err", err)
			continue
		}
		var q store.Query
		if err := json.Unmarshal(data, &q); err != nil {
			logger.Warn("Skipping corrupt query record", "key", key, "err", err)
			continue
		}
		previews = append(previews, store.NewPreview(hash, q))
	}

	store.SortNewestFirst(previews)
	return previews, nil
}

func (s *BlobStore) GetQuery(ctx context.Context, hash string) (*store.Query, error) {
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	data, err := s.bucket.Get(ctx, queryKey(hash))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", hash, err)
	}
	var q store.Query
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to decode query %s: %w", hash, err)
	}
	return &q, nil
}

func (s *BlobStore) GetResult(ctx context.Context, hash string) (*argmap.Response, error) {
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	data, err := s.bucket.Get(ctx, resultKey(hash))
	if err != nil {
		return nil, fmt.Errorf("result %s: %w", hash, err)
	}
	var r argmap.Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", hash, err)
	}
	return &r, nil
}
