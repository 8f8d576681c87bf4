// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package ktree implements the ordered, indexed container the VOS
// hierarchy is built from: a key can be looked up by exact match or
// probed for the nearest neighbor in either direction. Value encoding
// (epoch stamps, cookies, payloads) is left entirely to callers —
// package layout defines the one record codec every level actually
// uses.
//
// A tree is realized as a bbolt bucket. Hashed-string keys (dkeys,
// akeys) are stored as their raw bytes; integer keys (epochs, extent
// indexes) are encoded big-endian so that bbolt's lexicographic byte
// ordering is also numeric ordering, which is what makes GE/LE probes
// over epoch ranges cheap.
package ktree
