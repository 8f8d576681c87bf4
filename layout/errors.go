// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package layout

import "github.com/zeebo/errs"

// The ten error kinds spec.md §7 names. They live here, rather than in
// package vos, so that discard and aggregate — which walk the same
// on-disk layout directly and cannot import vos without creating an
// import cycle — raise the same classes vos.Container's own operations
// do. Package vos re-exports these under its own names for callers who
// only ever import vos.
var (
	ErrInvalidArgument = errs.Class("vos: invalid argument")
	ErrNotFound        = errs.Class("vos: not found")
	ErrNoHandle        = errs.Class("vos: no handle")
	ErrNotPermitted    = errs.Class("vos: not permitted")
	ErrOutOfMemory     = errs.Class("vos: out of memory")
	ErrIO              = errs.Class("vos: io")
	ErrProtocol        = errs.Class("vos: protocol")
	ErrTimedOut        = errs.Class("vos: timed out")
	ErrNoSpace         = errs.Class("vos: no space")
	ErrRetryable       = errs.Class("vos: retryable")
)

// AllClasses lists every §7 error kind, for callers classifying an
// unknown error against all of them (see vos.isClassified).
var AllClasses = []*errs.Class{
	&ErrInvalidArgument, &ErrNotFound, &ErrNoHandle, &ErrNotPermitted,
	&ErrOutOfMemory, &ErrIO, &ErrProtocol, &ErrTimedOut, &ErrNoSpace, &ErrRetryable,
}
