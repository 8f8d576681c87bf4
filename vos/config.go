// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

// Config holds the knobs a caller supplies when opening a container.
// It carries no CLI/daemon bootstrap concerns (those are out of scope
// per spec.md §1); it is meant to be populated by whatever
// configuration layer a caller already has, the way the teacher's
// cfgstruct-tagged option objects are assembled.
type Config struct {
	// BulkThreshold is the payload size, in bytes, at or above which a
	// Payload should carry a BulkHandle instead of inline bytes
	// (spec.md §6, §9 "inline or bulk"). CreateContainer replaces a
	// zero value with DefaultBulkThreshold; OpenContainer keeps it as
	// given.
	BulkThreshold int

	// FormatVersion is stamped into a newly created container's header
	// and checked on Open. Zero uses DefaultFormatVersion.
	FormatVersion uint32

	// MaxConcurrentIterators bounds how many OpenIterator sessions may
	// be live at once, each of which pins its own read-only bbolt
	// transaction open for the session's lifetime. Zero uses
	// DefaultMaxConcurrentIterators.
	MaxConcurrentIterators int64
}

// DefaultMaxConcurrentIterators matches the teacher's typical bounded
// worker-pool width for background scans (e.g. segment-verify's default
// concurrency), reused here to cap concurrent iterator sessions rather
// than letting every caller pin an unbounded number of open
// transactions.
const DefaultMaxConcurrentIterators = 64

// DefaultBulkThreshold matches the teacher's historical piecestore
// inline-transfer cutoff: below this, a payload rides in the same RPC
// as its metadata; at or above it, the transport is expected to use
// bulk transfer.
const DefaultBulkThreshold = 8 * 1024 * 1024

// DefaultFormatVersion is used by CreateContainer and OpenContainer
// when Config.FormatVersion is left zero.
const DefaultFormatVersion = 1
