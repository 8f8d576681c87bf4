// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package layout is the on-disk schema shared by package vos and its
// iter/discard/aggregate engines: bucket names and key encodings for
// the container -> object -> dkey -> akey -> record hierarchy (spec.md
// §3, §6 "Persisted state layout"). Keeping the schema in one place
// lets the engine packages walk and mutate the same bbolt buckets that
// package vos's Fetch/Update/Punch operate on, without importing vos
// itself.
package layout

import (
	"go.etcd.io/bbolt"

	"storj.io/vos/ktree"
)

// Top-level buckets inside a container's bbolt database.
var (
	BucketMeta    = []byte("meta")    // container header fields
	BucketObjects = []byte("objects") // oid -> nested dkey bucket
	BucketObjMeta = []byte("objmeta") // oid -> first_epoch (8B BE)
)

// Keys inside BucketMeta.
var (
	MetaKeyUUID      = []byte("uuid")
	MetaKeyWatermark = []byte("watermark")
	MetaKeyFormat    = []byte("format")
)

// akeyKindKey is a reserved 1-byte key inside every akey bucket holding
// the IOD-kind tag. Record keys inside that same bucket are always 8 or
// 16 bytes (SingleRecordKey / ArrayRecordKey), so a 1-byte key can never
// collide with a real record, regardless of the caller-supplied akey
// name used to name the bucket itself.
var akeyKindKey = []byte{0xff}

// AkeyKindKey returns the reserved key an akey bucket stores its
// IOD-kind tag under.
func AkeyKindKey() []byte { return akeyKindKey }

// ObjectKey returns the bytes an ObjectID is stored under in
// BucketObjects / BucketObjMeta.
func ObjectKey(oid [16]byte) []byte {
	return oid[:]
}

// SingleRecordKey returns the key a SINGLE-kind akey's record tree
// stores its epoch-stamped value under.
func SingleRecordKey(epoch uint64) []byte {
	return ktree.EncodeUint64(epoch)
}

// ParseSingleRecordKey decodes a key produced by SingleRecordKey.
func ParseSingleRecordKey(key []byte) uint64 {
	return ktree.DecodeUint64(key)
}

// ArrayRecordKey returns the key an ARRAY-kind akey's record tree
// stores an extent under. Keys are ordered primarily by epoch (not by
// index) so that a reverse probe from the query epoch visits candidate
// extents in the order the visibility rule needs them.
func ArrayRecordKey(epoch, indexLo uint64) []byte {
	return ktree.EncodeUint64Pair(epoch, indexLo)
}

// ParseArrayRecordKey decodes a key produced by ArrayRecordKey.
func ParseArrayRecordKey(key []byte) (epoch, indexLo uint64) {
	return ktree.DecodeUint64Pair(key)
}

// IsAkeyKindKey reports whether key is the reserved kind-tag entry
// rather than a real record key, so generic record-bucket traversals
// (discard, aggregate) can skip it.
func IsAkeyKindKey(key []byte) bool {
	return len(key) == 1 && key[0] == akeyKindKey[0]
}

// AkeyKind reads the IOD-kind tag stamped on an existing akey bucket.
func AkeyKind(b *bbolt.Bucket) (IODKind, error) {
	raw := b.Get(akeyKindKey)
	if raw == nil {
		return 0, ErrProtocol.New("akey bucket missing kind tag")
	}
	return IODKind(raw[0]), nil
}
