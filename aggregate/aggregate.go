// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package aggregate implements the Aggregation Engine (spec.md §4.6):
// credit-bounded collapse of superseded versions, within a closed
// epoch range, down to a single relocated record per identity at the
// range's upper bound. Unlike discard it is resumable — a call that
// exhausts its credit budget returns an iter.Anchor the next call
// resumes from, and the two together must reach the same final state
// as one unbounded call (spec.md §8 "Aggregation resumability").
//
// Credit granularity: spec.md's state machine lists SCAN_DKEYS,
// SCAN_AKEYS, and COLLAPSE_RECX as separate credit-consuming
// transitions. This implementation spends one credit per akey fully
// collapsed (its SINGLE history, or every distinct ARRAY extent
// identity it holds) rather than sub-dividing further — a coarser but
// still exactly resumable granularity, recorded as a resolved open
// question in DESIGN.md.
package aggregate

import (
	"bytes"

	"go.etcd.io/bbolt"

	"storj.io/vos/iter"
	"storj.io/vos/layout"
	"storj.io/vos/objectindex"
)

// Range is a closed epoch range [Lo, Hi].
type Range struct {
	Lo uint64
	Hi uint64
}

// Unlimited is the credits value spec.md §4.3 calls "a negative
// (equivalently, maximum unsigned) credit value": run to completion.
const Unlimited = ^uint64(0)

// Result is what one Run call reports back to its caller.
type Result struct {
	// Anchor resumes a future call exactly where this one stopped.
	// Callers that don't intend to resume may discard it.
	Anchor iter.Anchor
	// Credits is the unspent remainder of the budget passed in.
	Credits uint64
	// Finish is true iff the whole [Lo,Hi] range has been collapsed
	// for oid. The caller (vos.Container.EpochAggregate) advances the
	// watermark only when Finish is true.
	Finish bool
}

// Run collapses oid's records in rng, spending at most credits units
// of work, resuming from anchor (the zero Anchor starts from the
// beginning). See spec.md §4.3's epoch_aggregate contract.
func Run(tx *bbolt.Tx, oid objectindex.ObjectID, rng Range, credits uint64, anchor iter.Anchor) (Result, error) {
	if rng.Lo > rng.Hi {
		return Result{}, layout.ErrInvalidArgument.New("aggregate range [%d,%d] has lo > hi", rng.Lo, rng.Hi)
	}

	dkeys, err := objectindex.Find(tx, oid)
	if objectindex.ErrNotFound.Has(err) {
		return Result{Anchor: iter.Anchor{Tag: iter.AnchorDone}, Credits: credits, Finish: true}, nil
	}
	if err != nil {
		return Result{}, err
	}

	dkeyIter := iter.Prepare(dkeys, iter.DKEY)
	if anchor.HaveDkey {
		if err := dkeyIter.Probe(anchor.Dkey); err != nil {
			return Result{}, err
		}
	} else {
		if err := dkeyIter.Probe(nil); err != nil {
			return Result{}, err
		}
	}

	remaining := credits
	firstDkey := true
	for dkeyIter.State() == iter.StateOK {
		dkeyName, _, err := dkeyIter.Fetch()
		if err != nil {
			return Result{}, err
		}
		dkeyName = append([]byte(nil), dkeyName...)
		akeys := dkeys.Bucket(dkeyName)

		akeyIter := iter.Prepare(akeys, iter.AKEY)
		resumeAkeys := firstDkey && anchor.HaveDkey && anchor.HaveAkey && bytes.Equal(dkeyName, anchor.Dkey)
		if resumeAkeys {
			if err := akeyIter.Probe(anchor.Akey); err != nil {
				return Result{}, err
			}
		} else {
			if err := akeyIter.Probe(nil); err != nil {
				return Result{}, err
			}
		}
		firstDkey = false

		for akeyIter.State() == iter.StateOK && remaining > 0 {
			akeyName, _, err := akeyIter.Fetch()
			if err != nil {
				return Result{}, err
			}
			akeyName = append([]byte(nil), akeyName...)
			records := akeys.Bucket(akeyName)

			kind, err := layout.AkeyKind(records)
			if err != nil {
				return Result{}, err
			}
			if err := collapseAkey(records, kind, rng); err != nil {
				return Result{}, err
			}
			remaining--

			if err := akeyIter.Next(); err != nil {
				return Result{}, err
			}
		}

		if remaining == 0 && akeyIter.State() == iter.StateOK {
			nextAkey, _, err := akeyIter.Fetch()
			if err != nil {
				return Result{}, err
			}
			return Result{
				Anchor: iter.Anchor{
					Tag: iter.AnchorOK, HaveDkey: true, Dkey: dkeyName,
					HaveAkey: true, Akey: append([]byte(nil), nextAkey...),
				},
				Credits: 0,
				Finish:  false,
			}, nil
		}

		if err := dkeyIter.Next(); err != nil {
			return Result{}, err
		}
	}

	return Result{Anchor: iter.Anchor{Tag: iter.AnchorDone}, Credits: remaining, Finish: true}, nil
}

// collapseAkey applies the per-identity preservation rule (spec.md
// §4.3, §4.6) to every identity records holds: the SINGLE history is
// one identity; an ARRAY akey has one identity per distinct extent
// start (IndexLo) it has ever been written at.
func collapseAkey(records *bbolt.Bucket, kind layout.IODKind, rng Range) error {
	if kind == layout.Single {
		return collapseSingle(records, rng)
	}
	return collapseArray(records, rng)
}

// collapseSingle keeps only the greatest in-range epoch's record,
// relocated to rng.Hi, discarding every other in-range record.
func collapseSingle(records *bbolt.Bucket, rng Range) error {
	cur := records.Cursor()
	var toDelete [][]byte
	var maxEpoch uint64
	var maxKey, maxVal []byte

	lo := layout.SingleRecordKey(rng.Lo)
	for k, v := cur.Seek(lo); k != nil; k, v = cur.Next() {
		if layout.IsAkeyKindKey(k) {
			continue
		}
		epoch := layout.ParseSingleRecordKey(k)
		if epoch > rng.Hi {
			break
		}
		if maxKey != nil {
			toDelete = append(toDelete, maxKey)
		}
		maxEpoch, maxKey, maxVal = epoch, append([]byte(nil), k...), append([]byte(nil), v...)
	}
	if maxKey == nil {
		return nil // nothing in range for this identity
	}
	for _, k := range toDelete {
		if err := records.Delete(k); err != nil {
			return layout.ErrIO.Wrap(err)
		}
	}
	if maxEpoch != rng.Hi {
		if err := records.Delete(maxKey); err != nil {
			return layout.ErrIO.Wrap(err)
		}
		if err := records.Put(layout.SingleRecordKey(rng.Hi), maxVal); err != nil {
			return layout.ErrIO.Wrap(err)
		}
	}
	return nil
}

type arrayGroup struct {
	maxEpoch uint64
	maxKey   []byte
	maxVal   []byte
	toDelete [][]byte
}

// collapseArray groups in-range records by IndexLo, then applies the
// same single-identity collapse within each group. The scan visits
// records in (epoch, indexLo) order — epoch primary — so groups are
// built incrementally across the whole pass rather than contiguously;
// a bucket holding few enough in-range records for one aggregate call
// to process within a reasonable credit budget keeps this a single
// linear scan.
func collapseArray(records *bbolt.Bucket, rng Range) error {
	groups := map[uint64]*arrayGroup{}
	var order []uint64

	cur := records.Cursor()
	lo := layout.ArrayRecordKey(rng.Lo, 0)
	for k, v := cur.Seek(lo); k != nil; k, v = cur.Next() {
		if layout.IsAkeyKindKey(k) {
			continue
		}
		epoch, indexLo := layout.ParseArrayRecordKey(k)
		if epoch > rng.Hi {
			break
		}
		g := groups[indexLo]
		if g == nil {
			g = &arrayGroup{}
			groups[indexLo] = g
			order = append(order, indexLo)
		}
		if g.maxKey != nil {
			g.toDelete = append(g.toDelete, g.maxKey)
		}
		g.maxEpoch, g.maxKey, g.maxVal = epoch, append([]byte(nil), k...), append([]byte(nil), v...)
	}

	for _, indexLo := range order {
		g := groups[indexLo]
		for _, k := range g.toDelete {
			if err := records.Delete(k); err != nil {
				return layout.ErrIO.Wrap(err)
			}
		}
		if g.maxEpoch != rng.Hi {
			if err := records.Delete(g.maxKey); err != nil {
				return layout.ErrIO.Wrap(err)
			}
			if err := records.Put(layout.ArrayRecordKey(rng.Hi, indexLo), g.maxVal); err != nil {
				return layout.ErrIO.Wrap(err)
			}
		}
	}
	return nil
}
