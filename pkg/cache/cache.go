// Package cache provides small byte caches used to memoize model calls:
// an in-memory layer, a persistent disk layer and a layered combination.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key hashes the given parts into a stable cache key. Parts are length
// prefixed so ("ab", "c") and ("a", "bc") never collide.
func Key(namespace string, parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write(p)
	}
	return namespace + ":v1:" + hex.EncodeToString(h.Sum(nil))
}
