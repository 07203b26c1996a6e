// Package cache memoizes pipeline results for the lifetime of a session.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
)

// Cache maps canonical request keys to stored results. There is no eviction:
// entries live until Clear.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
	group   singleflight.Group
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Key returns the SHA-256 hex of the function name and its arguments in
// canonical form: a JSON array of the name followed by every argument, with
// top-level strings NFC-normalized. Byte slices encode as base64.
func Key(fn string, args ...any) (string, error) {
	canon := make([]any, 0, len(args)+1)
	canon = append(canon, norm.NFC.String(fn))
	for _, a := range args {
		if s, ok := a.(string); ok {
			a = norm.NFC.String(s)
		}
		canon = append(canon, a)
	}
	b, err := json.Marshal(canon)
	if err != nil {
		return "", eris.Wrapf(err, "cache: serialize arguments for %s", fn)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns the stored value for key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores value under key, replacing any prior entry.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Do returns the cached value for key, or runs fn once and stores its result.
// Concurrent callers with the same key share a single fn invocation. Errors
// are returned but never stored.
func (c *Cache) Do(key string, fn func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		zap.L().Debug("cache hit", zap.String("key", shortKey(key)))
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	return v, err
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
