// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import (
	"github.com/google/uuid"

	"storj.io/vos/objectindex"
)

// ObjectID is the 128-bit object identifier (spec.md §3).
type ObjectID = objectindex.ObjectID

// Dkey is an opaque distribution-key byte string.
type Dkey []byte

// Akey is an opaque attribute-key byte string.
type Akey []byte

// Epoch is the caller-supplied 64-bit monotone version stamp.
type Epoch uint64

// Cookie identifies the writer of a record; scopes discard (spec.md
// §4.5, GLOSSARY).
type Cookie = uuid.UUID

// Index is a position in an ARRAY akey's 1-D extent space.
type Index uint64

// Recx is a half-open extent [IndexLo, IndexLo+Count) on an ARRAY-kind
// akey.
type Recx struct {
	IndexLo Index
	Count   uint64
}
