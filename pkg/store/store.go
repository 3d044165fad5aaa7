// Package store persists extraction queries and their results under a
// content hash of the query.
//
// Identical queries (same text, temperature and model) map to the same hash,
// so saving them again overwrites the earlier record instead of adding one.
// Query and result records live in separate namespaces and are written
// independently; a query without a result is not an error.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/OFFIS-RIT/argmap/pkg/argmap"
)

const (
	DefaultHashLength = 12
	MinHashLength     = 8
	MaxHashLength     = sha256.Size * 2

	previewLength = 100
)

// ErrNotFound is returned (possibly wrapped) when a hash has no record in the
// requested namespace.
var ErrNotFound = errors.New("not found")

// Query is a persisted extraction request. Timestamp is not part of the hash.
type Query struct {
	Text        string    `json:"text"`
	Temperature float64   `json:"temperature"`
	Model       *string   `json:"model"`
	Timestamp   time.Time `json:"timestamp"`
}

// QueryPreview is one entry of ListQueries.
type QueryPreview struct {
	Hash        string    `json:"hash"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Model       *string   `json:"model"`
}

// Store is a content-addressable store for queries and results.
type Store interface {
	// SaveQuery writes q under its hash and returns the hash. A zero
	// Timestamp is set to the current time.
	SaveQuery(ctx context.Context, q Query) (string, error)
	// SaveResult writes r under hash.
	SaveResult(ctx context.Context, hash string, r argmap.Response) error
	// ListQueries returns previews of all readable queries, newest first.
	ListQueries(ctx context.Context) ([]QueryPreview, error)
	GetQuery(ctx context.Context, hash string) (*Query, error)
	GetResult(ctx context.Context, hash string) (*argmap.Response, error)
}

// hashInput has its fields in lexical key order, which makes the encoding
// canonical.
type hashInput struct {
	Model       *string `json:"model"`
	Temperature float64 `json:"temperature"`
	Text        string  `json:"text"`
}

// Hash returns the first length lowercase hex characters of the SHA-256 of
// the canonical JSON encoding of {model, temperature, text}.
func Hash(text string, temperature float64, model *string, length int) (string, error) {
	data, err := json.Marshal(hashInput{Model: model, Temperature: temperature, Text: text})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:ClampHashLength(length)], nil
}

// HashQuery is Hash for a Query.
func HashQuery(q Query, length int) (string, error) {
	return Hash(q.Text, q.Temperature, q.Model, length)
}

// ClampHashLength maps length into [MinHashLength, MaxHashLength]. Zero or
// negative values select DefaultHashLength.
func ClampHashLength(length int) int {
	switch {
	case length <= 0:
		return DefaultHashLength
	case length < MinHashLength:
		return MinHashLength
	case length > MaxHashLength:
		return MaxHashLength
	}
	return length
}

// ValidHash reports whether s looks like a hash produced by Hash. Stores use
// it to reject path-like identifiers early.
func ValidHash(s string) bool {
	if len(s) < MinHashLength || len(s) > MaxHashLength {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// NewPreview builds the list entry for q. Text longer than 100 characters is
// cut and marked with "...".
func NewPreview(hash string, q Query) QueryPreview {
	text := q.Text
	if utf8.RuneCountInString(text) > previewLength {
		text = string([]rune(text)[:previewLength]) + "..."
	}
	return QueryPreview{
		Hash:        hash,
		Text:        text,
		Timestamp:   q.Timestamp,
		Temperature: q.Temperature,
		Model:       q.Model,
	}
}

// SortNewestFirst orders previews by descending timestamp, breaking ties by
// hash so the order is stable across calls.
func SortNewestFirst(previews []QueryPreview) {
	sort.Slice(previews, func(i, j int) bool {
		if !previews[i].Timestamp.Equal(previews[j].Timestamp) {
			return previews[i].Timestamp.After(previews[j].Timestamp)
		}
		return previews[i].Hash < previews[j].Hash
	})
}

// SaveExtraction saves q and the successful result m under one hash and
// returns the response carrying that hash. On error the returned response
// is still usable but has no SavedHash.
func SaveExtraction(ctx context.Context, s Store, q Query, m *argmap.ArgumentMap) (argmap.Response, error) {
	resp := argmap.NewResult(m)

	hash, err := s.SaveQuery(ctx, q)
	if err != nil {
		return resp, err
	}

	resp.SavedHash = &hash
	if err := s.SaveResult(ctx, hash, resp); err != nil {
		resp.SavedHash = nil
		return resp, err
	}
	return resp, nil
}
