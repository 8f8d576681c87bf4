// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import (
	"context"

	"go.etcd.io/bbolt"

	"storj.io/vos/handle"
	"storj.io/vos/iter"
	"storj.io/vos/objectindex"
)

// IterHandle is an opaque reference to a live iterator session, handed
// out by OpenIterator and consumed by every other iterator method.
type IterHandle = handle.ID

// openIter pairs a live iterator with the read-only transaction its
// cursor is only valid for the lifetime of. Unlike Fetch/Update, which
// open and close a transaction per call, an iterator session spans
// multiple calls, so the transaction has to outlive any single method
// call here too.
type openIter struct {
	tx *bbolt.Tx
	it *iter.Iter
}

// OpenIterator begins a new iterator session over one level of oid's
// hierarchy (spec.md §4.4's prepare step) and returns a handle to it.
// dkey/akey are consulted only for the levels below them: typ ==
// iter.DKEY ignores both, iter.AKEY ignores akey, iter.RECX uses both.
//
// The session holds a read-only bbolt transaction open until the
// handle is closed; per spec.md §5 ("a container may not be torn down
// while any live iterator or object handle references it") Close
// refuses to run while any session from this container remains open.
// Concurrent sessions are capped at Config.MaxConcurrentIterators via a
// weighted semaphore, so an unbounded number of callers can't each pin
// their own long-lived read transaction open against the database.
func (c *Container) OpenIterator(ctx context.Context, oid ObjectID, dkey Dkey, akey Akey, typ iter.Type) (IterHandle, error) {
	if err := c.iterSem.Acquire(ctx, 1); err != nil {
		return 0, ErrTimedOut.Wrap(err)
	}

	tx, err := c.db.Begin(false)
	if err != nil {
		c.iterSem.Release(1)
		return 0, ErrIO.Wrap(err)
	}

	bucket, err := iterBucket(tx, oid, dkey, akey, typ)
	if err != nil {
		_ = tx.Rollback()
		c.iterSem.Release(1)
		return 0, err
	}

	id, err := c.iters.Alloc(&openIter{tx: tx, it: iter.Prepare(bucket, typ)})
	if err != nil {
		_ = tx.Rollback()
		c.iterSem.Release(1)
		return 0, ErrIO.Wrap(err)
	}
	return id, nil
}

func iterBucket(tx *bbolt.Tx, oid ObjectID, dkey Dkey, akey Akey, typ iter.Type) (*bbolt.Bucket, error) {
	dkeys, err := objectindex.Find(tx, oid)
	if objectindex.ErrNotFound.Has(err) {
		return nil, ErrNotFound.New("oid %x", oid)
	}
	if err != nil {
		return nil, ErrIO.Wrap(err)
	}
	if typ == iter.DKEY {
		return dkeys, nil
	}

	akeys, err := resolveDkeyBucket(dkeys, dkey, false)
	if err != nil {
		return nil, err
	}
	if typ == iter.AKEY {
		return akeys, nil
	}

	records, err := resolveAkeyBucket(akeys, akey, 0, false)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// getIter looks up h, bumping its refcount so the entry cannot be
// evicted out from under the in-flight call.
func (c *Container) getIter(h IterHandle) (*openIter, error) {
	oi, err := c.iters.Get(h)
	if err != nil {
		return nil, ErrNoHandle.Wrap(err)
	}
	return oi, nil
}

// IterProbe positions h at or after from (nil for the first entry),
// per spec.md §4.4's probe step.
func (c *Container) IterProbe(h IterHandle, from []byte) error {
	oi, err := c.getIter(h)
	if err != nil {
		return err
	}
	defer func() { _ = c.iters.Release(h) }()
	return oi.it.Probe(from)
}

// IterNext advances h (spec.md §4.4's next step).
func (c *Container) IterNext(h IterHandle) error {
	oi, err := c.getIter(h)
	if err != nil {
		return err
	}
	defer func() { _ = c.iters.Release(h) }()
	return oi.it.Next()
}

// IterFetch returns h's current key/value pair (spec.md §4.4's fetch
// step).
func (c *Container) IterFetch(h IterHandle) (key, value []byte, err error) {
	oi, err := c.getIter(h)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = c.iters.Release(h) }()
	return oi.it.Fetch()
}

// IterState reports h's current lifecycle state.
func (c *Container) IterState(h IterHandle) (iter.State, error) {
	oi, err := c.getIter(h)
	if err != nil {
		return iter.StateNone, err
	}
	defer func() { _ = c.iters.Release(h) }()
	return oi.it.State(), nil
}

// CloseIterator ends session h (spec.md §4.4's finish step), rolling
// back its read-only transaction and releasing the handle. Calling it
// twice on the same handle fails with ErrNoHandle, matching the
// reference-counted "closing drops the last reference" contract
// package handle documents.
func (c *Container) CloseIterator(h IterHandle) error {
	oi, err := c.getIter(h)
	if err != nil {
		return err
	}
	oi.it.Finish()
	if err := c.iters.Release(h); err != nil {
		return ErrNoHandle.Wrap(err)
	}
	// One Release for getIter's Get, one for the session's own Alloc
	// reference: the session is only actually removed on the second.
	if err := c.iters.Release(h); err != nil {
		return ErrNoHandle.Wrap(err)
	}
	c.iterSem.Release(1)
	return nil
}

func onIterRemove(_ IterHandle, oi *openIter) {
	_ = oi.tx.Rollback()
}
