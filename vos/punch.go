// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import "context"

// Punch hides the visible version at the given identity as of epoch,
// by writing a zero-sized record there (spec.md §3, §4.3). It is
// exactly an Update with an empty payload.
func (c *Container) Punch(ctx context.Context, oid ObjectID, epoch Epoch, cookie Cookie, dkey Dkey, akey Akey, recx *Recx) error {
	iod := IOD{Akey: akey}
	sgl := SGL{}

	if recx != nil {
		iod.Kind = Array
		iod.Recxs = []Recx{*recx}
	} else {
		iod.Kind = Single
	}

	return c.Update(ctx, oid, epoch, cookie, dkey, []IOD{iod}, []SGL{sgl})
}
