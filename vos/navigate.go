// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import (
	"go.etcd.io/bbolt"

	"storj.io/vos/layout"
)

// resolveDkeyBucket returns the akey bucket rooted at dkey inside dkeys,
// creating it if create is true and it does not yet exist.
func resolveDkeyBucket(dkeys *bbolt.Bucket, dkey Dkey, create bool) (*bbolt.Bucket, error) {
	if create {
		b, err := dkeys.CreateBucketIfNotExists(dkey)
		if err != nil {
			return nil, ErrIO.Wrap(err)
		}
		return b, nil
	}
	b := dkeys.Bucket(dkey)
	if b == nil {
		return nil, ErrNotFound.New("dkey %q", dkey)
	}
	return b, nil
}

// resolveAkeyBucket returns the record bucket for akey inside the
// dkey's akey-bucket, creating it and stamping its kind tag if create
// is true and it does not yet exist. If the akey already exists with a
// different kind than requested, it fails with invalid-argument: an
// akey's shape is fixed at first write.
func resolveAkeyBucket(akeys *bbolt.Bucket, akey Akey, kind IODKind, create bool) (*bbolt.Bucket, error) {
	if create {
		b, err := akeys.CreateBucketIfNotExists(akey)
		if err != nil {
			return nil, ErrIO.Wrap(err)
		}
		existingKind := b.Get(layout.AkeyKindKey())
		if existingKind == nil {
			if err := b.Put(layout.AkeyKindKey(), []byte{byte(kind)}); err != nil {
				return nil, ErrIO.Wrap(err)
			}
		} else if IODKind(existingKind[0]) != kind {
			return nil, ErrInvalidArgument.New(
				"akey %q already has kind %d, requested %d", akey, existingKind[0], kind)
		}
		return b, nil
	}
	b := akeys.Bucket(akey)
	if b == nil {
		return nil, ErrNotFound.New("akey %q", akey)
	}
	return b, nil
}

// akeyKind reports the stored kind tag of an existing akey bucket.
func akeyKind(b *bbolt.Bucket) (IODKind, error) {
	return layout.AkeyKind(b)
}
