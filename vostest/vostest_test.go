// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vostest_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"storj.io/vos"
	"storj.io/vos/vostest"
)

func openTestContainer(t *testing.T) *vos.Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), "container.db")
	c, err := vos.CreateContainer(path, uuid.New(), vos.Config{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// TestScenarioS2 reproduces spec.md §8 S2 end to end through the
// Options-struct harness.
func TestScenarioS2(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	cookie := uuid.New()
	var oid vos.ObjectID
	oid[0] = 2
	dkey := vos.Dkey("K")
	akey := vos.Akey("A")
	single := func(e int, payload string) vostest.Update {
		return vostest.Update{
			OID: oid, Epoch: vos.Epoch(e), Cookie: cookie, Dkey: dkey,
			IODs: []vos.IOD{{Akey: akey, Kind: vos.Single}},
			SGLs: []vos.SGL{{Payload: vos.Payload{Inline: []byte(payload)}}},
		}
	}

	single(1000, "V1").Check(ctx, t, c)
	single(2000, "V2").Check(ctx, t, c)
	single(3000, "V3").Check(ctx, t, c)

	vostest.Discard{Lo: 2000, Hi: 2000, Cookie: cookie}.Check(ctx, t, c)
	vostest.FetchSingleBytes{OID: oid, Epoch: 2000, Dkey: dkey, Akey: akey, Expect: []byte("V1")}.Check(ctx, t, c)

	single(2000, "V2-prime").Check(ctx, t, c)
	vostest.FetchSingleBytes{OID: oid, Epoch: 2000, Dkey: dkey, Akey: akey, Expect: []byte("V2-prime")}.Check(ctx, t, c)
}

// TestScenarioS4ViaHarness mirrors aggregate's own S4 test but through
// the vostest.Aggregate options struct, exercising its credit-loop path.
func TestScenarioS4ViaHarness(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	cookie := uuid.New()
	var oid vos.ObjectID
	oid[0] = 4
	dkey := vos.Dkey("K")
	akey := vos.Akey("A")

	for e := 1; e <= 20; e++ {
		vostest.Update{
			OID: oid, Epoch: vos.Epoch(e), Cookie: cookie, Dkey: dkey,
			IODs: []vos.IOD{{Akey: akey, Kind: vos.Single}},
			SGLs: []vos.SGL{{Payload: vos.Payload{Inline: []byte{byte(e)}}}},
		}.Check(ctx, t, c)
	}

	vostest.Aggregate{
		OID: oid, Lo: 1, Hi: 10, CreditsPerRun: 1, ExpectWatermark: 10,
	}.Check(ctx, t, c)

	vostest.FetchSingleBytes{OID: oid, Epoch: 10, Dkey: dkey, Akey: akey, Expect: []byte{10}}.Check(ctx, t, c)
	vostest.FetchSingleBytes{OID: oid, Epoch: 9, Dkey: dkey, Akey: akey, Expect: []byte{10}}.Check(ctx, t, c)
}
