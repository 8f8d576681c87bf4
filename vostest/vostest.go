// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package vostest gives package vos's test suites (and any external
// test relying on a real container) the same "Options struct plus a
// Check method" idiom the teacher's satellite/metabase test packages
// use: an Options value names inputs and expectations, and Check
// drives the matching vos.Container operation and asserts the result,
// so a scenario test reads as a table of Options values rather than
// hand-rolled setup/assert blocks.
package vostest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/vos"
)

// Update runs a vos.Container.Update call and checks the error it
// returns against ErrClass (nil means "must succeed").
type Update struct {
	OID     vos.ObjectID
	Epoch   vos.Epoch
	Cookie  vos.Cookie
	Dkey    vos.Dkey
	IODs    []vos.IOD
	SGLs    []vos.SGL
	ErrClass interface{ Has(error) bool }
}

// Check runs the update and asserts it matches u's expectations.
func (u Update) Check(ctx context.Context, t testing.TB, c *vos.Container) {
	t.Helper()
	err := c.Update(ctx, u.OID, u.Epoch, u.Cookie, u.Dkey, u.IODs, u.SGLs)
	if u.ErrClass == nil {
		require.NoError(t, err)
		return
	}
	require.Error(t, err)
	require.True(t, u.ErrClass.Has(err))
}

// Fetch runs a vos.Container.Fetch call and checks the returned values
// against Expect (matched by index, one-to-one with IODs).
type Fetch struct {
	OID    vos.ObjectID
	Epoch  vos.Epoch
	Dkey   vos.Dkey
	IODs   []vos.IOD
	Expect []vos.FetchedValue
}

// Check runs the fetch and asserts the returned values equal Expect.
func (f Fetch) Check(ctx context.Context, t testing.TB, c *vos.Container) {
	t.Helper()
	got, err := c.Fetch(ctx, f.OID, f.Epoch, f.Dkey, f.IODs)
	require.NoError(t, err)
	require.Equal(t, f.Expect, got)
}

// FetchSingleBytes is a convenience Fetch check for the common case of
// one SINGLE-kind iod, asserting only its visible bytes.
type FetchSingleBytes struct {
	OID    vos.ObjectID
	Epoch  vos.Epoch
	Dkey   vos.Dkey
	Akey   vos.Akey
	Expect []byte // nil/empty means "absent"
}

// Check runs the fetch and asserts the visible bytes match Expect.
func (f FetchSingleBytes) Check(ctx context.Context, t testing.TB, c *vos.Container) {
	t.Helper()
	iod := vos.IOD{Akey: f.Akey, Kind: vos.Single}
	got, err := c.Fetch(ctx, f.OID, f.Epoch, f.Dkey, []vos.IOD{iod})
	require.NoError(t, err)
	require.Len(t, got, 1)
	if len(f.Expect) == 0 {
		require.Zero(t, got[0].Size)
	} else {
		require.Equal(t, f.Expect, got[0].Bytes)
	}
}

// Discard runs a vos.Container.EpochDiscard call.
type Discard struct {
	Lo, Hi uint64
	Cookie vos.Cookie
}

// Check runs the discard and asserts it succeeds.
func (d Discard) Check(ctx context.Context, t testing.TB, c *vos.Container) {
	t.Helper()
	require.NoError(t, c.EpochDiscard(ctx, d.Lo, d.Hi, d.Cookie))
}

// Aggregate runs vos.Container.EpochAggregate to completion (looping
// over credits if a finite budget is given) and asserts the final
// watermark.
type Aggregate struct {
	OID           vos.ObjectID
	Lo, Hi        uint64
	CreditsPerRun uint64 // vos.AggregateUnlimited for a single unbounded call
	ExpectWatermark uint64
}

// Check drives EpochAggregate to completion and asserts the resulting
// watermark.
func (a Aggregate) Check(ctx context.Context, t testing.TB, c *vos.Container) {
	t.Helper()
	anchor := vos.AggregateAnchor{}
	for {
		res, err := c.EpochAggregate(ctx, a.OID, a.Lo, a.Hi, a.CreditsPerRun, anchor)
		require.NoError(t, err)
		if res.Finish {
			break
		}
		anchor = res.Anchor
	}
	wm, err := c.Watermark()
	require.NoError(t, err)
	require.EqualValues(t, a.ExpectWatermark, wm)
}
