package message

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	// DefaultHeaderCapacity is the slot count allocated on first use.
	DefaultHeaderCapacity = 3

	// headerGrowth is the number of slots added when all are taken.
	headerGrowth = 3
)

// headerEntry is an immutable (protocol id, header) pair.
type headerEntry struct {
	id  int16
	hdr Header
}

// headerTable is one published generation of header storage. Entries fill
// slots from the front; the first nil slot ends the used region.
type headerTable struct {
	slots []atomic.Pointer[headerEntry]
}

func newHeaderTable(capacity int) *headerTable {
	return &headerTable{slots: make([]atomic.Pointer[headerEntry], capacity)}
}

// Headers is the per-message collection of protocol headers, kept in
// insertion order and keyed by protocol id.
//
// Writers serialize on a mutex. Readers load the current table and its slots
// atomically, so they may miss a concurrent put but never see a torn entry.
// The zero value is an empty collection.
type Headers struct {
	mu    sync.Mutex
	table atomic.Pointer[headerTable]
}

func validID(id int16) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHeaderID, id)
	}
	return nil
}

// Put adds h under id, replacing any header already stored under id.
func (hs *Headers) Put(id int16, h Header) error {
	if err := validID(id); err != nil {
		return err
	}
	if h == nil {
		return ErrNilHeader
	}

	entry := &headerEntry{id: id, hdr: h}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	t := hs.table.Load()
	if t == nil {
		t = newHeaderTable(DefaultHeaderCapacity)
		t.slots[0].Store(entry)
		hs.table.Store(t)
		return nil
	}

	for i := range t.slots {
		e := t.slots[i].Load()
		if e == nil || e.id == id {
			t.slots[i].Store(entry)
			return nil
		}
	}

	// Full: publish a larger generation with the new entry appended.
	n := len(t.slots)
	grown := newHeaderTable(n + headerGrowth)
	for i := range t.slots {
		grown.slots[i].Store(t.slots[i].Load())
	}
	grown.slots[n].Store(entry)
	hs.table.Store(grown)
	return nil
}

// Get returns the header stored under id, or nil if there is none.
func (hs *Headers) Get(id int16) (Header, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	var found Header
	hs.Each(func(hid int16, h Header) bool {
		if hid == id {
			found = h
			return false
		}
		return true
	})
	return found, nil
}

// GetAny returns the first header, in collection order, whose id is one of
// ids. It returns nil if none match.
func (hs *Headers) GetAny(ids ...int16) (Header, error) {
	for _, id := range ids {
		if err := validID(id); err != nil {
			return nil, err
		}
	}
	var found Header
	hs.Each(func(hid int16, h Header) bool {
		for _, id := range ids {
			if hid == id {
				found = h
				return false
			}
		}
		return true
	})
	return found, nil
}

// Remove deletes the header stored under id and reports whether one existed.
// The remaining entries are compacted into a new generation.
func (hs *Headers) Remove(id int16) (bool, error) {
	if err := validID(id); err != nil {
		return false, err
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	t := hs.table.Load()
	if t == nil {
		return false, nil
	}

	next := newHeaderTable(len(t.slots))
	j := 0
	removed := false
	for i := range t.slots {
		e := t.slots[i].Load()
		if e == nil {
			break
		}
		if e.id == id {
			removed = true
			continue
		}
		next.slots[j].Store(e)
		j++
	}
	if removed {
		hs.table.Store(next)
	}
	return removed, nil
}

// Len returns the number of stored headers.
func (hs *Headers) Len() int {
	n := 0
	hs.Each(func(int16, Header) bool {
		n++
		return true
	})
	return n
}

// Cap returns the number of allocated slots.
func (hs *Headers) Cap() int {
	if t := hs.table.Load(); t != nil {
		return len(t.slots)
	}
	return 0
}

// Each calls fn for every header in insertion order until fn returns false.
func (hs *Headers) Each(fn func(id int16, h Header) bool) {
	t := hs.table.Load()
	if t == nil {
		return
	}
	for i := range t.slots {
		e := t.slots[i].Load()
		if e == nil || !fn(e.id, e.hdr) {
			return
		}
	}
}

// Map returns the headers keyed by protocol id.
func (hs *Headers) Map() map[int16]Header {
	m := make(map[int16]Header)
	hs.Each(func(id int16, h Header) bool {
		m[id] = h
		return true
	})
	return m
}

// WireSize returns the encoded size of the header entries, excluding the
// leading count.
func (hs *Headers) WireSize() int {
	size := 0
	hs.Each(func(_ int16, h Header) bool {
		size += 2 + 2 + h.WireSize()
		return true
	})
	return size
}

// String renders the headers as "id: header" pairs.
func (hs *Headers) String() string {
	var sb strings.Builder
	hs.Each(func(id int16, h Header) bool {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d: %v", id, h)
		return true
	})
	return sb.String()
}

// appendEntries appends the entries of one snapshot to dst, skipping ids
// listed in excluded.
func (hs *Headers) appendEntries(dst []*headerEntry, excluded []int16) []*headerEntry {
	t := hs.table.Load()
	if t == nil {
		return dst
	}
outer:
	for i := range t.slots {
		e := t.slots[i].Load()
		if e == nil {
			break
		}
		for _, x := range excluded {
			if e.id == x {
				continue outer
			}
		}
		dst = append(dst, e)
	}
	return dst
}

// copyFrom replaces the receiver's contents with the entries of src for
// which keep returns true. Entries are shared, not cloned.
func (hs *Headers) copyFrom(src *Headers, keep func(id int16) bool) {
	var entries []*headerEntry
	capacity := DefaultHeaderCapacity
	if t := src.table.Load(); t != nil {
		capacity = len(t.slots)
		for i := range t.slots {
			e := t.slots[i].Load()
			if e == nil {
				break
			}
			if keep == nil || keep(e.id) {
				entries = append(entries, e)
			}
		}
	}

	next := newHeaderTable(capacity)
	for i, e := range entries {
		next.slots[i].Store(e)
	}

	hs.mu.Lock()
	hs.table.Store(next)
	hs.mu.Unlock()
}

// reset drops all headers and preallocates capacity slots. Decoding uses it
// to size storage from the header count on the wire.
func (hs *Headers) reset(capacity int) {
	if capacity < DefaultHeaderCapacity {
		capacity = DefaultHeaderCapacity
	}
	hs.mu.Lock()
	hs.table.Store(newHeaderTable(capacity))
	hs.mu.Unlock()
}
