// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package handle implements the opaque-ID redesign of spec.md §9's
// "handle-to-pointer cookies" source pattern: instead of handing callers
// a raw pointer disguised as an integer, a Slab hands out small integer
// IDs into a process-local table it owns, and reference-counts each
// descriptor so a container cannot be torn down while any live iterator
// or object handle still references it.
package handle

import (
	"sync"
	"sync/atomic"

	"github.com/zeebo/errs"
)

// ErrClosed is returned by Alloc after a successful Close.
var ErrClosed = errs.Class("handle: slab closed")

// ErrNoHandle is returned when an ID has no live entry.
var ErrNoHandle = errs.Class("handle: no such handle")

// ID is an opaque reference into a Slab.
type ID uint64

// Slab owns a set of reference-counted descriptors of type T and serves
// ID-based lookups in O(1).
type Slab[T any] struct {
	mu       sync.Mutex
	next     uint64
	entries  map[ID]*entry[T]
	closed   bool
	onRemove func(ID, T)
}

type entry[T any] struct {
	value T
	refs  int64
}

// NewSlab constructs an empty slab. onRemove, if non-nil, is called
// once a descriptor's refcount reaches zero and it is evicted.
func NewSlab[T any](onRemove func(ID, T)) *Slab[T] {
	return &Slab[T]{
		entries:  make(map[ID]*entry[T]),
		onRemove: onRemove,
	}
}

// Alloc inserts value with an initial refcount of 1 and returns its ID.
func (s *Slab[T]) Alloc(value T) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed.New("alloc on closed slab")
	}
	s.next++
	id := ID(s.next)
	s.entries[id] = &entry[T]{value: value, refs: 1}
	return id, nil
}

// Get looks up value by id and increments its refcount; callers must
// call Release when done, mirroring the owned/shared split in spec.md
// §9 ("Reference counting with manual inc/dec").
func (s *Slab[T]) Get(id ID) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	e, ok := s.entries[id]
	if !ok {
		return zero, ErrNoHandle.New("id %d", id)
	}
	atomic.AddInt64(&e.refs, 1)
	return e.value, nil
}

// Release drops one reference to id. Once the count reaches zero the
// descriptor is evicted and onRemove (if set) is invoked outside the
// slab's lock.
func (s *Slab[T]) Release(id ID) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return ErrNoHandle.New("id %d", id)
	}
	remaining := atomic.AddInt64(&e.refs, -1)
	if remaining > 0 {
		s.mu.Unlock()
		return nil
	}
	delete(s.entries, id)
	s.mu.Unlock()

	if s.onRemove != nil {
		s.onRemove(id, e.value)
	}
	return nil
}

// Len reports the number of live descriptors.
func (s *Slab[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close marks the slab closed; further Alloc calls fail. It does not
// force-release existing handles: while any handle is still live it
// returns an error and leaves the slab open, since a container "may
// not be torn down while any live iterator or object handle references
// it" (spec.md §5).
func (s *Slab[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) > 0 {
		return errs.New("handle: slab closed with %d live handles", len(s.entries))
	}
	s.closed = true
	return nil
}
