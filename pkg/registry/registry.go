// Package registry provides a small concurrency-safe table mapping keys to
// constructors.
//
// It backs the magic-id and message-type lookups in pkg/message. Tables are
// plain values that callers create and inject; the package holds no global
// state.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicate is returned when a key is registered twice.
var ErrDuplicate = errors.New("registry: key already registered")

// Key is the set of types a Table can be keyed by.
type Key interface {
	~uint8 | ~uint16 | ~int16 | ~int | ~string
}

// Table is a concurrency-safe map from K to V. Reads take a shared lock, so
// lookups on the decode path do not contend with each other.
type Table[K Key, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates an empty table.
func New[K Key, V any]() *Table[K, V] {
	return &Table[K, V]{entries: make(map[K]V)}
}

// Register adds v under k. It fails with ErrDuplicate if k is taken.
func (t *Table[K, V]) Register(k K, v V) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[k]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicate, k)
	}
	t.entries[k] = v
	return nil
}

// Replace adds or overwrites the value under k.
func (t *Table[K, V]) Replace(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[k] = v
}

// Unregister removes k and reports whether it was present.
func (t *Table[K, V]) Unregister(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[k]
	delete(t.entries, k)
	return ok
}

// Get returns the value registered under k.
func (t *Table[K, V]) Get(k K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[k]
	return v, ok
}

// Len returns the number of registered keys.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Keys returns the registered keys in ascending order.
func (t *Table[K, V]) Keys() []K {
	t.mu.RLock()
	keys := make([]K, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	t.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns an independent copy of the table.
func (t *Table[K, V]) Clone() *Table[K, V] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := &Table[K, V]{entries: make(map[K]V, len(t.entries))}
	for k, v := range t.entries {
		c.entries[k] = v
	}
	return c
}
