// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import (
	"context"

	"go.etcd.io/bbolt"

	"storj.io/vos/aggregate"
	"storj.io/vos/discard"
	"storj.io/vos/iter"
)

// EpochDiscard removes every record in rng whose cookie matches cookie,
// pruning any subtree the removal leaves empty (spec.md §4.3, §4.5).
// It runs to completion and never touches the watermark.
func (c *Container) EpochDiscard(ctx context.Context, lo, hi uint64, cookie Cookie) error {
	return c.txn(ctx, func(tx *bbolt.Tx) error {
		return discard.Run(tx, discard.Range{Lo: lo, Hi: hi}, cookie)
	})
}

// AggregateAnchor is the opaque, serializable resume position
// EpochAggregate returns; pass the zero value to start from the
// beginning of oid's records (spec.md §4.3 "anchor*").
type AggregateAnchor = iter.Anchor

// AggregateUnlimited is the credits value that means "run to
// completion" (spec.md §4.3's "negative, equivalently maximum
// unsigned, credit value").
const AggregateUnlimited = aggregate.Unlimited

// AggregateResult reports what one EpochAggregate call did.
type AggregateResult struct {
	Anchor  AggregateAnchor
	Credits uint64
	Finish  bool
}

// EpochAggregate collapses oid's superseded versions inside [lo,hi],
// spending at most credits units of work before returning (spec.md
// §4.3 epoch_aggregate). On Finish, the container's watermark advances
// to max(current, hi). Re-invoking with the returned anchor resumes
// exactly where this call stopped.
func (c *Container) EpochAggregate(ctx context.Context, oid ObjectID, lo, hi uint64, credits uint64, anchor AggregateAnchor) (AggregateResult, error) {
	var result aggregate.Result
	err := c.txn(ctx, func(tx *bbolt.Tx) error {
		r, err := aggregate.Run(tx, oid, aggregate.Range{Lo: lo, Hi: hi}, credits, anchor)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return AggregateResult{}, err
	}
	if result.Finish {
		if err := c.AdvanceWatermark(hi); err != nil {
			return AggregateResult{}, err
		}
	}
	return AggregateResult{Anchor: result.Anchor, Credits: result.Credits, Finish: result.Finish}, nil
}
