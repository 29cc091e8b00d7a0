// Package store implements the process-wide concurrent keyspace shared by
// every connection: a flat string-to-Frame map and a hash-of-hash map of
// string fields to Frame, each backed by cornelk/hashmap's lock-free
// sharded hash map — the same concurrent map used by
// entertainment-venue-rcproxy's cluster and IP allow-list tables.
//
// Both maps are process-local, have process lifetime, and are logically
// disjoint namespaces: the store does nothing to detect a key used as both
// a string and a hash, matching the spec's intentional minimalism here.
package store

import (
	"sync"

	"github.com/cornelk/hashmap"

	"redhubkv/pkg/frame"
)

// Store is the shared keyspace. The zero value is an empty store; New
// returns a pointer to one.
type Store struct {
	strings hashmap.HashMap
	hashes  hashmap.HashMap
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Get returns the Frame stored at key, or (zero, false) on a miss.
func (s *Store) Get(key string) (frame.Frame, bool) {
	v, ok := s.strings.Get(key)
	if !ok {
		return frame.Frame{}, false
	}
	return v.(frame.Frame), true
}

// Set stores f at key, replacing whatever was there. Concurrent Set calls
// on the same key linearize; the later arrival at the store wins. Uses
// cornelk/hashmap's Set, which overwrites an existing entry; its Insert
// only adds keys that are not yet present.
func (s *Store) Set(key string, f frame.Frame) {
	s.strings.Set(key, f)
}

// hashBucket is the inner field map for one outer hash key. It carries its
// own mutex rather than relying on the outer map's atomicity, since HGet/
// HSet/HGetAll each touch only the fields of one bucket and must not block
// operations on other keys' buckets.
type hashBucket struct {
	mu     sync.RWMutex
	fields map[string]frame.Frame
}

// HGet returns the Frame stored at field within the hash at key, or
// (zero, false) if either the outer key or the field is absent.
func (s *Store) HGet(key, field string) (frame.Frame, bool) {
	b, ok := s.hashes.Get(key)
	if !ok {
		return frame.Frame{}, false
	}
	bucket := b.(*hashBucket)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	f, ok := bucket.fields[field]
	return f, ok
}

// HSet stores f at field within the hash at key, atomically creating an
// empty inner map on the first write to a given outer key. After HSet
// returns, a concurrent HGetAll on the same key is guaranteed to observe
// the inner map — it is never missing.
func (s *Store) HSet(key, field string, f frame.Frame) {
	actual, _ := s.hashes.GetOrInsert(key, &hashBucket{fields: make(map[string]frame.Frame)})
	bucket := actual.(*hashBucket)
	bucket.mu.Lock()
	bucket.fields[field] = f
	bucket.mu.Unlock()
}

// HGetAll returns a point-in-time snapshot of the fields stored at key, or
// (nil, false) if key has never been written by HSet. The snapshot is a
// plain copy: the caller may range over it without holding any store lock.
func (s *Store) HGetAll(key string) (map[string]frame.Frame, bool) {
	b, ok := s.hashes.Get(key)
	if !ok {
		return nil, false
	}
	bucket := b.(*hashBucket)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	snapshot := make(map[string]frame.Frame, len(bucket.fields))
	for k, v := range bucket.fields {
		snapshot[k] = v
	}
	return snapshot, true
}
