// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package objectindex implements spec.md §4.2: a map from 128-bit
// object identifier to the root of that object's per-object dkey tree,
// with create-if-missing semantics. It is deliberately thin — package
// vos supplies the bbolt transaction and owns everything below the
// returned dkey bucket.
package objectindex

import (
	"encoding/binary"

	"github.com/zeebo/errs"
	"go.etcd.io/bbolt"

	"storj.io/vos/ktree"
	"storj.io/vos/layout"
)

// ErrNotFound is returned by Find when the object has no index entry.
var ErrNotFound = errs.Class("objectindex: not found")

// ErrNotEmpty is returned by Remove when the object's dkey tree still
// has entries.
var ErrNotEmpty = errs.Class("objectindex: dkey tree not empty")

// ObjectID is the 128-bit object identifier.
type ObjectID [16]byte

// FindOrAlloc returns the dkey bucket for oid, creating both the index
// entry and the bucket — stamped with firstEpoch — if this is the
// object's first-ever update.
func FindOrAlloc(tx *bbolt.Tx, oid ObjectID, firstEpoch uint64) (*bbolt.Bucket, error) {
	objects, err := tx.CreateBucketIfNotExists(layout.BucketObjects)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	objMeta, err := tx.CreateBucketIfNotExists(layout.BucketObjMeta)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	key := layout.ObjectKey(oid)
	existing := objects.Bucket(key)
	if existing != nil {
		return existing, nil
	}

	dkeys, err := objects.CreateBucket(key)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	if err := objMeta.Put(key, ktree.EncodeUint64(firstEpoch)); err != nil {
		return nil, errs.Wrap(err)
	}
	return dkeys, nil
}

// Find returns the dkey bucket for oid, or ErrNotFound if oid has
// never been updated.
func Find(tx *bbolt.Tx, oid ObjectID) (*bbolt.Bucket, error) {
	objects := tx.Bucket(layout.BucketObjects)
	if objects == nil {
		return nil, ErrNotFound.New("oid %x", oid)
	}
	dkeys := objects.Bucket(layout.ObjectKey(oid))
	if dkeys == nil {
		return nil, ErrNotFound.New("oid %x", oid)
	}
	return dkeys, nil
}

// FirstEpoch returns the epoch oid was first seen at.
func FirstEpoch(tx *bbolt.Tx, oid ObjectID) (uint64, error) {
	objMeta := tx.Bucket(layout.BucketObjMeta)
	if objMeta == nil {
		return 0, ErrNotFound.New("oid %x", oid)
	}
	v := objMeta.Get(layout.ObjectKey(oid))
	if v == nil {
		return 0, ErrNotFound.New("oid %x", oid)
	}
	return binary.BigEndian.Uint64(v), nil
}

// Remove deletes oid's index entry. The caller must have already
// verified the dkey tree is empty (spec.md §3: "Empty subtrees ...
// MUST be removed by the operation that emptied them before it
// returns"); Remove itself re-checks and fails ErrNotEmpty rather than
// silently destroying live data.
func Remove(tx *bbolt.Tx, oid ObjectID) error {
	objects := tx.Bucket(layout.BucketObjects)
	if objects == nil {
		return nil
	}
	key := layout.ObjectKey(oid)
	dkeys := objects.Bucket(key)
	if dkeys != nil && !ktree.Empty(dkeys) {
		return ErrNotEmpty.New("oid %x", oid)
	}
	if err := objects.DeleteBucket(key); err != nil && err != bbolt.ErrBucketNotFound {
		return errs.Wrap(err)
	}
	if objMeta := tx.Bucket(layout.BucketObjMeta); objMeta != nil {
		if err := objMeta.Delete(key); err != nil {
			return errs.Wrap(err)
		}
	}
	return nil
}

// ForEach calls fn for every (oid, dkey-bucket) currently indexed. It
// stops and returns fn's error if fn returns one.
func ForEach(tx *bbolt.Tx, fn func(oid ObjectID, dkeys *bbolt.Bucket) error) error {
	objects := tx.Bucket(layout.BucketObjects)
	if objects == nil {
		return nil
	}
	return objects.ForEach(func(k, v []byte) error {
		if v != nil {
			return nil // not a nested bucket; shouldn't happen in this bucket
		}
		var oid ObjectID
		copy(oid[:], k)
		return fn(oid, objects.Bucket(k))
	})
}
