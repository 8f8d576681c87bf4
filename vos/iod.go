// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import "storj.io/vos/layout"

// IODKind is the shape tag of an akey: SINGLE (one buffer per epoch) or
// ARRAY (sparse extents over a 1-D index space) — spec.md §1, §3.
type IODKind = layout.IODKind

// The two IOD kinds spec.md §1 names.
const (
	Single = layout.Single
	Array  = layout.Array
)

// IOD (I/O descriptor) names one akey and, for ARRAY akeys, the extents
// within it that a Fetch/Update/Punch call touches. It mirrors the
// "iods" the Object RPC contract in spec.md §6 carries across the wire.
type IOD struct {
	Akey Akey
	Kind IODKind
	// Recxs is required (len >= 1) for ARRAY; for SINGLE it may be
	// empty or hold exactly one extent — spec.md §4.3 "Fails with invalid-argument if any iod is
	// malformed (e.g., ARRAY kind without extents, SINGLE with count
	// != 1, missing akey name)".
	Recxs []Recx
}

// BulkHandle is an opaque reference a transport resolves out-of-band
// once a payload has crossed the Config.BulkThreshold (spec.md §9
// "Inline or bulk payload switch").
type BulkHandle struct {
	ID string
}

// Payload is the "inline or bulk" value class: a caller-facing buffer
// that may ride inline in an RPC or be fetched separately via a bulk
// handle, chosen by the transport based on size.
type Payload struct {
	Inline []byte
	Bulk   *BulkHandle
}

// IsBulk reports whether the payload should be resolved out-of-band.
func (p Payload) IsBulk() bool { return p.Bulk != nil }

// SGL (scatter/gather list) is the caller-provided buffer set an IOD's
// bytes are written into (Fetch) or read from (Update); one SGL
// corresponds to one IOD, in order.
type SGL struct {
	Payload Payload
}

// validate checks the structural well-formedness rule from spec.md
// §4.3's Fetch/Update contract.
func (iod IOD) validate() error {
	if len(iod.Akey) == 0 {
		return ErrInvalidArgument.New("missing akey name")
	}
	switch iod.Kind {
	case Single:
		if len(iod.Recxs) != 1 {
			if len(iod.Recxs) == 0 {
				// SINGLE implicitly addresses one (degenerate) extent;
				// callers may omit Recxs entirely.
				return nil
			}
			return ErrInvalidArgument.New("SINGLE iod with count != 1: %d", len(iod.Recxs))
		}
	case Array:
		if len(iod.Recxs) == 0 {
			return ErrInvalidArgument.New("ARRAY iod without extents")
		}
	default:
		return ErrInvalidArgument.New("unknown iod kind %d", iod.Kind)
	}
	return nil
}
