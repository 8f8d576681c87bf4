// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package iter

import (
	"bytes"
	"encoding/binary"

	"storj.io/vos/layout"
)

// MaxKeyLen bounds the dkey/akey bytes an Anchor can carry. spec.md §9
// asks for a "fixed-maximum anchor record" in place of the source's
// variable-length anchors; dkey/akey names are themselves unbounded
// byte strings, so rather than hashing them down to a fixed prefix
// (which could collide and violate Aggregation resumability, spec.md
// §8) the anchor carries the raw name up to this generous cap. A
// position whose dkey or akey exceeds it cannot be resumed and
// Encode reports invalid-argument rather than silently truncating.
const MaxKeyLen = 256

// AnchorTag mirrors the iterator state machine (spec.md §4.4) at the
// position an Anchor captures: whether the scan that produced it still
// had a current entry (OK), ran off the end (Done), or never started
// (None, the zero value — "start from the beginning").
type AnchorTag uint8

const (
	AnchorNone AnchorTag = iota
	AnchorOK
	AnchorDone
)

// Anchor is the opaque, serializable cursor the aggregate engine
// checkpoints progress into: the object, dkey, akey, and
// record-level position the next invocation should resume from
// (spec.md §4.6 "the purge anchor encodes (object, dkey, akey, recx
// cursor)"). Each level is present independently so a position that
// finished one object's dkeys but hasn't started its akeys is
// representable exactly.
type Anchor struct {
	Tag AnchorTag

	HaveObject bool
	ObjectID   [16]byte

	HaveDkey bool
	Dkey     []byte

	HaveAkey bool
	Akey     []byte

	HaveRecx    bool
	RecxEpoch   uint64
	RecxIndexLo uint64
}

const (
	flagObject = 1 << iota
	flagDkey
	flagAkey
	flagRecx
)

// Encode serializes the anchor to an opaque byte string.
func (a Anchor) Encode() ([]byte, error) {
	if len(a.Dkey) > MaxKeyLen || len(a.Akey) > MaxKeyLen {
		return nil, layout.ErrInvalidArgument.New("anchor key exceeds %d bytes", MaxKeyLen)
	}

	var flags byte
	if a.HaveObject {
		flags |= flagObject
	}
	if a.HaveDkey {
		flags |= flagDkey
	}
	if a.HaveAkey {
		flags |= flagAkey
	}
	if a.HaveRecx {
		flags |= flagRecx
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(a.Tag))
	buf.WriteByte(flags)
	if a.HaveObject {
		buf.Write(a.ObjectID[:])
	}
	if a.HaveDkey {
		writeLenPrefixed(&buf, a.Dkey)
	}
	if a.HaveAkey {
		writeLenPrefixed(&buf, a.Akey)
	}
	if a.HaveRecx {
		_ = binary.Write(&buf, binary.BigEndian, a.RecxEpoch)
		_ = binary.Write(&buf, binary.BigEndian, a.RecxIndexLo)
	}
	return buf.Bytes(), nil
}

// DecodeAnchor parses an anchor previously produced by Encode. An empty
// slice decodes to the zero Anchor (AnchorNone, nothing else set) —
// the "start from the beginning" position.
func DecodeAnchor(b []byte) (Anchor, error) {
	if len(b) == 0 {
		return Anchor{}, nil
	}
	r := bytes.NewReader(b)

	tag, err := r.ReadByte()
	if err != nil {
		return Anchor{}, layout.ErrProtocol.Wrap(err)
	}
	flags, err := r.ReadByte()
	if err != nil {
		return Anchor{}, layout.ErrProtocol.Wrap(err)
	}

	a := Anchor{Tag: AnchorTag(tag)}
	if flags&flagObject != 0 {
		a.HaveObject = true
		if _, err := r.Read(a.ObjectID[:]); err != nil {
			return Anchor{}, layout.ErrProtocol.Wrap(err)
		}
	}
	if flags&flagDkey != 0 {
		a.HaveDkey = true
		if a.Dkey, err = readLenPrefixed(r); err != nil {
			return Anchor{}, err
		}
	}
	if flags&flagAkey != 0 {
		a.HaveAkey = true
		if a.Akey, err = readLenPrefixed(r); err != nil {
			return Anchor{}, err
		}
	}
	if flags&flagRecx != 0 {
		a.HaveRecx = true
		if err := binary.Read(r, binary.BigEndian, &a.RecxEpoch); err != nil {
			return Anchor{}, layout.ErrProtocol.Wrap(err)
		}
		if err := binary.Read(r, binary.BigEndian, &a.RecxIndexLo); err != nil {
			return Anchor{}, layout.ErrProtocol.Wrap(err)
		}
	}
	return a, nil
}

func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return nil, layout.ErrProtocol.Wrap(err)
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return nil, layout.ErrProtocol.Wrap(err)
		}
	}
	return b, nil
}
