// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package ktree

import "encoding/binary"

// IntKeySize is the encoded width of an integer-class key.
const IntKeySize = 8

// EncodeUint64 encodes v as a big-endian integer-class key, so that
// byte-lexicographic order on the result matches numeric order on v.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, IntKeySize)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeUint64 decodes a key produced by EncodeUint64.
func DecodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// EncodeUint64Pair encodes (a, b) as a 16-byte composite key ordered
// first by a, then by b. Used for array records keyed by (epoch, index)
// so that an epoch-range probe is a single cursor walk.
func EncodeUint64Pair(a, b uint64) []byte {
	out := make([]byte, 2*IntKeySize)
	binary.BigEndian.PutUint64(out[:IntKeySize], a)
	binary.BigEndian.PutUint64(out[IntKeySize:], b)
	return out
}

// DecodeUint64Pair decodes a key produced by EncodeUint64Pair.
func DecodeUint64Pair(key []byte) (a, b uint64) {
	a = binary.BigEndian.Uint64(key[:IntKeySize])
	b = binary.BigEndian.Uint64(key[IntKeySize:])
	return a, b
}
