// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package collab declares the interfaces the VOS core requires from its
// external collaborators (spec.md §6). The core never implements these
// and never calls them; it only stores the registrations the caller
// supplies. Keeping them here — rather than inline in package vos —
// lets the core depend on narrow capabilities instead of a concrete
// replicated-log, RPC, or pool-map implementation.
package collab

import "context"

// Term is a monotone leadership epoch, distinct from a VOS record
// epoch: it numbers consensus terms, not object versions.
type Term uint64

// LeadershipCallbacks is the two-method capability the transactional-KV
// layer above invokes on term transitions (spec.md §9 "Callbacks for
// leadership": modeled as a capability the collaborator implements and
// registers, not a global function pointer).
type LeadershipCallbacks interface {
	// StepUp is delivered at most once per term transition when this
	// replica becomes leader for term. Returning an error vetoes the
	// step-up.
	StepUp(ctx context.Context, term Term) error
	// StepDown is delivered at most once per term transition when this
	// replica stops being leader for term.
	StepDown(ctx context.Context, term Term)
}

// TransactionalKV is the replicated-log / consensus layer above the
// core: a path-addressed hierarchical KV store with begin/commit/abort
// semantics. The core treats it as a black box; its contract is:
// updates in an aborted transaction are invisible to readers, and
// commits are totally ordered and assigned monotone terms.
type TransactionalKV interface {
	Begin(ctx context.Context) (TxHandle, error)
	Commit(ctx context.Context, tx TxHandle) (Term, error)
	Abort(ctx context.Context, tx TxHandle) error

	// Register installs the callbacks invoked on this replica's
	// leadership transitions.
	Register(cb LeadershipCallbacks)
}

// TxHandle identifies an in-flight transaction on the collaborating
// transactional KV. Its representation is owned by that collaborator;
// the core only threads it through Begin/Commit/Abort.
type TxHandle interface{}

// RankStatus is a pool member's status as reported by the pool map.
type RankStatus int

// The four rank statuses the pool map tracks.
const (
	Down RankStatus = iota
	Up
	UpIn
	DownOut
)

// PoolMap supplies rank -> status for broadcast-group formation. The
// core only ever consumes the set of UP/UPIN ranks; it does not drive
// transitions.
type PoolMap interface {
	// Version returns the current monotone map version.
	Version(ctx context.Context) (uint64, error)
	// Status returns the status of rank as of the given map version.
	Status(ctx context.Context, version uint64, rank int) (RankStatus, error)
}

// ObjectRPC is the per-shard update/fetch/enumerate primitive exposed
// to clients above the core; spec.md §6 describes its request/response
// shape. The core does not implement transport — only the shapes that
// cross the boundary.
type ObjectRPC interface {
	// BulkThreshold reports the payload size, in bytes, at which a
	// caller should ride a payload as a Bulk handle instead of inline
	// (spec.md §9 "inline or bulk").
	BulkThreshold(ctx context.Context) (int, error)
}
