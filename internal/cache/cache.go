// Package cache provides the process-lifetime TTL stores shared by the
// gateway and the Steam client. Each concern owns its own Store instance;
// there are no package-level singletons so tests can reset freely.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a keyed response cache with a fixed TTL. Expired entries are
// detected on lookup; there is no background sweeper.
type Store struct {
	c *gocache.Cache
}

// New creates a Store whose entries expire after ttl.
func New(ttl time.Duration) *Store {
	return &Store{c: gocache.New(ttl, 0)}
}

// Get returns the cached value for key if one exists and is still fresh.
func (s *Store) Get(key string) (any, bool) {
	return s.c.Get(key)
}

// Set stores value under key, overwriting any prior entry.
func (s *Store) Set(key string, value any) {
	s.c.SetDefault(key, value)
}

// Reset drops every entry.
func (s *Store) Reset() {
	s.c.Flush()
}

// Len reports the number of entries, including not-yet-evicted stale ones.
func (s *Store) Len() int {
	return s.c.ItemCount()
}
