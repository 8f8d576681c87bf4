// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package discard implements the Discard Engine (spec.md §4.5): a
// filtered traversal of the object index that removes every record
// whose cookie and epoch match a caller-given range, pruning any
// object/dkey/akey subtree that traversal leaves empty. It runs to
// completion in one call — it never uses credits or anchors, unlike
// its sibling package aggregate.
package discard

import (
	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"storj.io/vos/iter"
	"storj.io/vos/ktree"
	"storj.io/vos/layout"
	"storj.io/vos/objectindex"
)

// Range is a closed epoch range [Lo, Hi].
type Range struct {
	Lo uint64
	Hi uint64
}

// Run discards every record in the container whose epoch falls in rng
// and whose cookie equals cookie, pruning subtrees the discard leaves
// empty (spec.md §4.5). It is idempotent: running it twice with the
// same arguments leaves the same state as running it once (spec.md
// §8 "Discard idempotence").
func Run(tx *bbolt.Tx, rng Range, cookie uuid.UUID) error {
	if rng.Lo > rng.Hi {
		return layout.ErrInvalidArgument.New("discard range [%d,%d] has lo > hi", rng.Lo, rng.Hi)
	}

	var emptied []objectindex.ObjectID
	err := objectindex.ForEach(tx, func(oid objectindex.ObjectID, dkeys *bbolt.Bucket) error {
		if err := discardDkeys(dkeys, rng, cookie); err != nil {
			return err
		}
		if ktree.Empty(dkeys) {
			emptied = append(emptied, oid)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Object-bucket deletion happens after objectindex.ForEach returns:
	// bbolt does not allow deleting top-level keys of the bucket a
	// ForEach is currently walking.
	for _, oid := range emptied {
		if err := objectindex.Remove(tx, oid); err != nil {
			return err
		}
	}
	return nil
}

func discardDkeys(dkeys *bbolt.Bucket, rng Range, cookie uuid.UUID) error {
	names, err := bucketNames(dkeys)
	if err != nil {
		return err
	}
	for _, name := range names {
		akeys := dkeys.Bucket(name)
		if err := discardAkeys(akeys, rng, cookie); err != nil {
			return err
		}
		if ktree.Empty(akeys) {
			if err := dkeys.DeleteBucket(name); err != nil {
				return layout.ErrIO.Wrap(err)
			}
		}
	}
	return nil
}

func discardAkeys(akeys *bbolt.Bucket, rng Range, cookie uuid.UUID) error {
	names, err := bucketNames(akeys)
	if err != nil {
		return err
	}
	for _, name := range names {
		records := akeys.Bucket(name)
		kind, err := layout.AkeyKind(records)
		if err != nil {
			return err
		}
		if err := discardRecords(records, kind, rng, cookie); err != nil {
			return err
		}
		// A bucket containing only its kind tag is empty of records;
		// ktree.Empty would report it non-empty (the tag is a real
		// entry), so check directly.
		if onlyKindTagRemains(records) {
			if err := akeys.DeleteBucket(name); err != nil {
				return layout.ErrIO.Wrap(err)
			}
		}
	}
	return nil
}

func discardRecords(records *bbolt.Bucket, kind layout.IODKind, rng Range, cookie uuid.UUID) error {
	it := iter.Prepare(records, iter.RECX)
	if err := it.Probe(nil); err != nil {
		return err
	}

	var toDelete [][]byte
	for it.State() == iter.StateOK {
		key, raw, err := it.Fetch()
		if err != nil {
			return err
		}
		if !layout.IsAkeyKindKey(key) {
			epoch := recordEpoch(kind, key)
			if epoch >= rng.Lo && epoch <= rng.Hi {
				rec, err := layout.DecodeRecord(raw)
				if err != nil {
					return layout.ErrProtocol.Wrap(err)
				}
				if rec.Cookie == cookie {
					toDelete = append(toDelete, append([]byte(nil), key...))
				}
			}
		}
		if err := it.Next(); err != nil {
			return err
		}
	}
	for _, key := range toDelete {
		if err := records.Delete(key); err != nil {
			return layout.ErrIO.Wrap(err)
		}
	}
	return nil
}

func recordEpoch(kind layout.IODKind, key []byte) uint64 {
	if kind == layout.Array {
		epoch, _ := layout.ParseArrayRecordKey(key)
		return epoch
	}
	return layout.ParseSingleRecordKey(key)
}

// bucketNames returns the names of every nested bucket directly inside
// b, snapshotted up front so callers may delete buckets while
// processing the list.
func bucketNames(b *bbolt.Bucket) ([][]byte, error) {
	var names [][]byte
	err := b.ForEach(func(k, v []byte) error {
		if v == nil {
			names = append(names, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return nil, layout.ErrIO.Wrap(err)
	}
	return names, nil
}

func onlyKindTagRemains(records *bbolt.Bucket) bool {
	count := 0
	_ = records.ForEach(func(k, v []byte) error {
		count++
		return nil
	})
	return count <= 1
}
