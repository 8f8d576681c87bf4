// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package discard_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"storj.io/vos"
	"storj.io/vos/discard"
	"storj.io/vos/objectindex"
)

func openTestContainer(t *testing.T) *vos.Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), "container.db")
	c, err := vos.CreateContainer(path, uuid.New(), vos.Config{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// runDiscard drives discard.Run inside the container's own bbolt db,
// the same bucket tree vos.Update/Fetch write and read.
func runDiscard(t *testing.T, c *vos.Container, rng discard.Range, cookie uuid.UUID) {
	t.Helper()
	err := c.DB().Update(func(tx *bbolt.Tx) error {
		return discard.Run(tx, rng, cookie)
	})
	require.NoError(t, err)
}

func someOID(b byte) vos.ObjectID {
	var oid vos.ObjectID
	oid[0] = b
	return oid
}

// TestDiscardScenarioS1 reproduces spec.md §8 S1: four single-kind
// writes at the same identity, discarded in two passes.
func TestDiscardScenarioS1(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	oid := someOID(1)
	cookie := uuid.New()
	dkey := vos.Dkey("K")
	akey := vos.Akey("A")
	iod := vos.IOD{Akey: akey, Kind: vos.Single}

	write := func(epoch vos.Epoch, payload string) {
		sgl := vos.SGL{Payload: vos.Payload{Inline: []byte(payload)}}
		require.NoError(t, c.Update(ctx, oid, epoch, cookie, dkey, []vos.IOD{iod}, []vos.SGL{sgl}))
	}
	fetch := func(epoch vos.Epoch) string {
		vs, err := c.Fetch(ctx, oid, epoch, dkey, []vos.IOD{iod})
		require.NoError(t, err)
		return string(vs[0].Bytes)
	}

	write(1, "P1")
	write(2, "P2")
	write(3, "P3")
	write(4, "P4")

	runDiscard(t, c, discard.Range{Lo: 1, Hi: 1}, cookie)
	require.Empty(t, fetch(1))
	require.Equal(t, "P2", fetch(2))

	runDiscard(t, c, discard.Range{Lo: 3, Hi: ^uint64(0)}, cookie)
	require.Equal(t, "P2", fetch(3))
	require.Equal(t, "P2", fetch(4))
}

// TestDiscardScenarioS3 reproduces spec.md §8 S3: a punch at the
// bottom of a range survives discard of the epoch above it and becomes
// the visible (absent) value at that epoch.
func TestDiscardScenarioS3(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	oid := someOID(3)
	cookie := uuid.New()
	dkey := vos.Dkey("K")
	akey := vos.Akey("A")
	iod := vos.IOD{Akey: akey, Kind: vos.Single}

	require.NoError(t, c.Punch(ctx, oid, 1000, cookie, dkey, akey, nil))
	sgl := func(p string) vos.SGL { return vos.SGL{Payload: vos.Payload{Inline: []byte(p)}} }
	require.NoError(t, c.Update(ctx, oid, 2000, cookie, dkey, []vos.IOD{iod}, []vos.SGL{sgl("V2")}))
	require.NoError(t, c.Update(ctx, oid, 3000, cookie, dkey, []vos.IOD{iod}, []vos.SGL{sgl("V3")}))

	runDiscard(t, c, discard.Range{Lo: 2000, Hi: 2000}, cookie)

	vs, err := c.Fetch(ctx, oid, 2000, dkey, []vos.IOD{iod})
	require.NoError(t, err)
	require.Zero(t, vs[0].Size, "punch at 1000 still wins at query epoch 2000")
}

// TestDiscardIdempotence checks spec.md §8's "discard(R,c); discard(R,c)
// == discard(R,c)" invariant directly.
func TestDiscardIdempotence(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	oid := someOID(5)
	cookie := uuid.New()
	dkey := vos.Dkey("K")
	akey := vos.Akey("A")
	iod := vos.IOD{Akey: akey, Kind: vos.Single}
	sgl := vos.SGL{Payload: vos.Payload{Inline: []byte("V")}}
	require.NoError(t, c.Update(ctx, oid, 5, cookie, dkey, []vos.IOD{iod}, []vos.SGL{sgl}))

	rng := discard.Range{Lo: 5, Hi: 5}
	runDiscard(t, c, rng, cookie)
	runDiscard(t, c, rng, cookie) // second call must be a no-op, not an error

	vs, err := c.Fetch(ctx, oid, 5, dkey, []vos.IOD{iod})
	require.NoError(t, err)
	require.Zero(t, vs[0].Size)
}

// TestDiscardPrunesEmptyObject reproduces the pruning half of spec.md
// §8 S6 at small scale: an object whose only dkey is fully discarded
// disappears from the object index entirely.
func TestDiscardPrunesEmptyObject(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	oid := someOID(6)
	cookie := uuid.New()
	dkey := vos.Dkey("only-dkey")
	akey := vos.Akey("only-akey")
	iod := vos.IOD{Akey: akey, Kind: vos.Single}
	sgl := vos.SGL{Payload: vos.Payload{Inline: []byte("V")}}
	require.NoError(t, c.Update(ctx, oid, 1000, cookie, dkey, []vos.IOD{iod}, []vos.SGL{sgl}))

	runDiscard(t, c, discard.Range{Lo: 1000, Hi: 1000}, cookie)

	_, err := c.Fetch(ctx, oid, 1000, dkey, []vos.IOD{iod})
	require.NoError(t, err) // object simply has nothing; Fetch never errors for an absent object

	vs, err := c.Fetch(ctx, oid, 1000, dkey, []vos.IOD{iod})
	require.NoError(t, err)
	require.Zero(t, vs[0].Size)

	require.NoError(t, c.DB().View(func(tx *bbolt.Tx) error {
		_, err := objectindex.Find(tx, oid)
		require.True(t, objectindex.ErrNotFound.Has(err))
		return nil
	}))
}

func TestDiscardRejectsInvertedRange(t *testing.T) {
	c := openTestContainer(t)
	err := c.DB().Update(func(tx *bbolt.Tx) error {
		return discard.Run(tx, discard.Range{Lo: 10, Hi: 5}, uuid.New())
	})
	require.Error(t, err)
}
