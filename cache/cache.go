// Package cache provides the digitization pipeline's one piece of shared
// mutable state: a content-addressed store of raw VLM responses, keyed by a
// hash of the image bytes, provider/model tag and prompt revision, so that
// repeated runs over the same image skip the remote call. It is an explicit
// handle passed into the Image Analyzer, never an ambient singleton, and
// concurrent identical requests collapse to exactly one upstream call via
// singleflight.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is one cached response plus its expiry.
type entry struct {
	value   interface{}
	expires time.Time
}

// Cache is a content-addressed, single-flight cache of VLM responses.
// The zero value is not usable; construct with New.
type Cache struct {
	mu    sync.Mutex
	store map[string]entry
	group singleflight.Group
	ttl   time.Duration

	// ephemeral, when true, makes Flush called by the caller at job
	// completion meaningful; the Cache itself never auto-flushes.
	ephemeral bool
}

// New builds a Cache with the given TTL for each entry. If ephemeral is
// true, callers are expected to call Flush when a job completes instead of
// retaining entries across jobs.
func New(ttl time.Duration, ephemeral bool) *Cache {
	return &Cache{
		store:     make(map[string]entry),
		ttl:       ttl,
		ephemeral: ephemeral,
	}
}

// Ephemeral reports whether this cache should be flushed at job completion.
func (c *Cache) Ephemeral() bool { return c.ephemeral }

// Key derives the cache key for an image's bytes, a provider/model tag, and
// a prompt revision string.
func Key(imageBytes []byte, providerModelTag, promptRevision string) string {
	h := sha256.New()
	h.Write(imageBytes)
	h.Write([]byte{0})
	h.Write([]byte(providerModelTag))
	h.Write([]byte{0})
	h.Write([]byte(promptRevision))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the cached value for key if present and unexpired;
// otherwise it calls compute exactly once even under concurrent callers
// requesting the same key (single-flight), stores the result and returns
// it. A failing compute is never cached.
func (c *Cache) GetOrCompute(key string, compute func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(key, result)
		return result, nil
	})
	return v, err
}

func (c *Cache) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Now().After(e.expires) {
		delete(c.store, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = entry{value: value, expires: time.Now().Add(c.ttl)}
}

// Flush discards every cached entry. Called by job orchestration when the
// cache is configured as ephemeral.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]entry)
}

// Len reports the number of entries currently cached, for diagnostics and
// tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}
