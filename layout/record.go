// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package layout

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
)

// ErrCorrupt is returned when a stored record cannot be decoded.
var ErrCorrupt = errs.Class("layout: corrupt record")

// IODKind tags whether an akey holds single-value or array records.
type IODKind byte

// The two record shapes spec.md §1 names.
const (
	Single IODKind = 0
	Array  IODKind = 1
)

// Record is the leaf value stored at a SINGLE or ARRAY record key: a
// size (zero means punch), the writer's cookie, and the payload. Array
// records additionally carry the extent length starting at the index
// encoded in their key.
type Record struct {
	Cookie uuid.UUID
	Size   uint32
	Count  uint64 // array extent length; unused (zero) for SINGLE
	Bytes  []byte
}

// IsPunch reports whether the record hides older versions instead of
// carrying live data.
func (r Record) IsPunch() bool { return r.Size == 0 }

// Encode serializes the record for storage as a bbolt value.
func (r Record) Encode() []byte {
	out := make([]byte, 16+4+8+len(r.Bytes))
	copy(out[0:16], r.Cookie[:])
	binary.BigEndian.PutUint32(out[16:20], r.Size)
	binary.BigEndian.PutUint64(out[20:28], r.Count)
	copy(out[28:], r.Bytes)
	return out
}

// DecodeRecord deserializes a value previously produced by
// Record.Encode.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) < 28 {
		return Record{}, ErrCorrupt.New("short record: %d bytes", len(b))
	}
	var r Record
	copy(r.Cookie[:], b[0:16])
	r.Size = binary.BigEndian.Uint32(b[16:20])
	r.Count = binary.BigEndian.Uint64(b[20:28])
	r.Bytes = append([]byte(nil), b[28:]...)
	return r, nil
}
