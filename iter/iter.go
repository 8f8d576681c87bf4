// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package iter implements the Iterator Framework (spec.md §4.4): a
// type-coded cursor over one level of the hierarchy (dkeys, akeys, or
// records) with the prepare/probe/next/fetch/finish lifecycle and the
// NONE/OK/END state machine, plus the resumable Anchor that the
// aggregate engine serializes across credit-bounded calls.
//
// The discard and aggregate engines that use this package live below
// vos in the dependency graph — they walk the
// same bbolt buckets package vos's Fetch/Update/Punch operate on but
// never import vos itself, so vos can import them without a cycle.
package iter

import (
	"go.etcd.io/bbolt"

	"storj.io/vos/ktree"
	"storj.io/vos/layout"
)

// Type is one of the three levels the framework can iterate (spec.md
// §4.4 "Type codes: DKEY, AKEY, RECX").
type Type int

const (
	DKEY Type = iota
	AKEY
	RECX
)

// State is the iterator's lifecycle state (spec.md §4.4's "NONE ->
// (probe) -> OK | END | NONE-on-error" machine).
type State int

const (
	// StateNone is the initial state and the state after any error:
	// next/fetch fail not-permitted; only Probe is allowed.
	StateNone State = iota
	// StateOK means Fetch has a current entry and Next may advance it.
	StateOK
	// StateEnd means the traversal ran off the end: next/fetch fail
	// not-found; only Probe (to restart) is allowed.
	StateEnd
)

// Iter is a live cursor over one bucket, dispatched by Type only in the
// sense that callers choose what the bucket's keys mean (epoch stamps
// for RECX, raw names for DKEY/AKEY); the mechanics are identical.
type Iter struct {
	typ    Type
	bucket *bbolt.Bucket
	cur    *ktree.Cursor
	state  State
}

// Prepare returns a new iterator over bucket in the NONE state. It
// does not itself fail: a bucket is always a valid thing to iterate,
// even when empty (spec.md's "prepare(type, params) -> iter").
func Prepare(bucket *bbolt.Bucket, typ Type) *Iter {
	return &Iter{typ: typ, bucket: bucket, state: StateNone}
}

// Probe positions the iterator at or after from (GE probe), or at the
// first entry if from is nil. It transitions to OK if an entry exists,
// END if the bucket has no entry at or after from, or leaves the
// iterator in NONE on an underlying error.
func (it *Iter) Probe(from []byte) error {
	op, key := ktree.First, []byte(nil)
	if from != nil {
		op, key = ktree.GE, from
	}
	cur, err := ktree.Probe(it.bucket, op, key)
	if ktree.ErrNotFound.Has(err) {
		it.cur = nil
		it.state = StateEnd
		return nil
	}
	if err != nil {
		it.cur = nil
		it.state = StateNone
		return layout.ErrIO.Wrap(err)
	}
	it.cur = cur
	it.state = StateOK
	return nil
}

// Next advances the iterator. It fails not-permitted in state NONE and
// not-found in state END.
func (it *Iter) Next() error {
	switch it.state {
	case StateNone:
		return layout.ErrNotPermitted.New("iter: next called in state NONE")
	case StateEnd:
		return layout.ErrNotFound.New("iter: next called in state END")
	}
	if err := it.cur.Next(true); err != nil {
		if ktree.ErrEndOfIter.Has(err) {
			it.state = StateEnd
			return nil
		}
		it.state = StateNone
		return layout.ErrIO.Wrap(err)
	}
	return nil
}

// Fetch returns the current key/value pair. It fails not-permitted in
// state NONE and not-found in state END (spec.md §4.4).
func (it *Iter) Fetch() (key, value []byte, err error) {
	switch it.state {
	case StateNone:
		return nil, nil, layout.ErrNotPermitted.New("iter: fetch called in state NONE")
	case StateEnd:
		return nil, nil, layout.ErrNotFound.New("iter: fetch called in state END")
	}
	k, v, _ := it.cur.Fetch()
	return k, v, nil
}

// State reports the iterator's current lifecycle state.
func (it *Iter) State() State { return it.state }

// Finish releases the iterator. Iter holds no resources beyond the
// enclosing bbolt transaction, so Finish only drops the cursor and
// returns the iterator to state NONE.
func (it *Iter) Finish() {
	it.cur = nil
	it.state = StateNone
}
