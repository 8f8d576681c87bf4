// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package ktree

import (
	"github.com/zeebo/errs"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned by Probe(EQ, ...) when the exact key is absent.
var ErrNotFound = errs.Class("ktree: not found")

// ErrEndOfIter is returned by Next when the cursor has been advanced
// past the last (or before the first) entry.
var ErrEndOfIter = errs.Class("ktree: end of iteration")

// ProbeOp selects how Probe resolves a key into a starting cursor.
type ProbeOp int

// The five probe operations the Key/Extent Tree contract supports.
const (
	First ProbeOp = iota
	Last
	EQ
	GE
	LE
)

// Cursor is a live position inside a bucket. It is only valid for the
// lifetime of the bbolt transaction that produced it.
type Cursor struct {
	bucket *bbolt.Bucket
	cur    *bbolt.Cursor
	key    []byte
	value  []byte
	ok     bool
}

// Probe resolves key according to op and returns a cursor positioned
// there. EQ fails with ErrNotFound if the key is absent; GE/LE return
// the nearest existing key in that direction and fail with ErrNotFound
// if none exists; First/Last fail with ErrNotFound on an empty bucket.
func Probe(bucket *bbolt.Bucket, op ProbeOp, key []byte) (*Cursor, error) {
	cur := bucket.Cursor()
	c := &Cursor{bucket: bucket, cur: cur}

	var k, v []byte
	switch op {
	case First:
		k, v = cur.First()
	case Last:
		k, v = cur.Last()
	case EQ:
		k, v = cur.Seek(key)
		if k == nil || !bytesEqual(k, key) {
			return nil, ErrNotFound.New("key %x", key)
		}
	case GE:
		k, v = cur.Seek(key)
	case LE:
		k, v = cur.Seek(key)
		if k == nil || !bytesEqual(k, key) {
			// Seek landed past key (or at end); step back one.
			k, v = cur.Prev()
		}
	default:
		return nil, errs.New("ktree: invalid probe op %d", op)
	}
	if k == nil {
		return nil, ErrNotFound.New("empty range for op %d, key %x", op, key)
	}
	c.key, c.value, c.ok = append([]byte(nil), k...), cloneValue(v), true
	return c, nil
}

// Next advances the cursor. forward=true walks toward larger keys,
// forward=false toward smaller keys. Returns ErrEndOfIter once the
// cursor runs off either end; the cursor is left invalid afterward.
func (c *Cursor) Next(forward bool) error {
	if !c.ok {
		return ErrEndOfIter.New("cursor already exhausted")
	}
	var k, v []byte
	if forward {
		k, v = c.cur.Next()
	} else {
		k, v = c.cur.Prev()
	}
	if k == nil {
		c.ok = false
		return ErrEndOfIter.New("no more entries")
	}
	c.key, c.value, c.ok = append([]byte(nil), k...), cloneValue(v), true
	return nil
}

// Fetch returns the key and raw value at the cursor's current position.
func (c *Cursor) Fetch() (key, value []byte, ok bool) {
	if !c.ok {
		return nil, nil, false
	}
	return c.key, c.value, true
}

// IsSubBucket reports whether the cursor's current position is a
// nested bucket (a subtree-handle value) rather than an inline entry.
func (c *Cursor) IsSubBucket() bool {
	return c.ok && c.value == nil
}

// Update inserts key=value, replacing any existing entry at key.
func Update(bucket *bbolt.Bucket, key, value []byte) error {
	if err := bucket.Put(key, value); err != nil {
		return errs.Wrap(err)
	}
	return nil
}

// Delete removes the entry at key, if any. Deleting an absent key is a
// no-op, matching the idempotence the engines above require.
func Delete(bucket *bbolt.Bucket, key []byte) error {
	if err := bucket.Delete(key); err != nil {
		return errs.Wrap(err)
	}
	return nil
}

// DeleteRange removes every inline entry whose key falls in [lo, hi]
// (inclusive). Nested buckets are left untouched; callers that need to
// prune subtrees do so explicitly via bbolt's DeleteBucket.
func DeleteRange(bucket *bbolt.Bucket, lo, hi []byte) error {
	cur := bucket.Cursor()
	var toDelete [][]byte
	for k, v := cur.Seek(lo); k != nil && bytesLE(k, hi); k, v = cur.Next() {
		if v == nil {
			continue // nested bucket, not an inline entry
		}
		toDelete = append(toDelete, append([]byte(nil), k...))
	}
	for _, k := range toDelete {
		if err := bucket.Delete(k); err != nil {
			return errs.Wrap(err)
		}
	}
	return nil
}

// Empty reports whether the bucket has no entries and no nested
// buckets.
func Empty(bucket *bbolt.Bucket) bool {
	k, _ := bucket.Cursor().First()
	return k == nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bytesLE(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) <= len(b)
}

func cloneValue(v []byte) []byte {
	if v == nil {
		return nil
	}
	return append([]byte(nil), v...)
}
