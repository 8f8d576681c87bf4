// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import "storj.io/vos/layout"

// The ten error kinds spec.md §7 names, re-exported from package layout
// so discard/aggregate (which cannot import vos) and vos itself raise
// and recognize the exact same classes.
var (
	ErrInvalidArgument = layout.ErrInvalidArgument
	ErrNotFound        = layout.ErrNotFound
	ErrNoHandle        = layout.ErrNoHandle
	ErrNotPermitted    = layout.ErrNotPermitted
	ErrOutOfMemory     = layout.ErrOutOfMemory
	ErrIO              = layout.ErrIO
	ErrProtocol        = layout.ErrProtocol
	ErrTimedOut        = layout.ErrTimedOut
	ErrNoSpace         = layout.ErrNoSpace
	ErrRetryable       = layout.ErrRetryable
)
