// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"storj.io/vos"
)

func openTestContainer(t *testing.T) *vos.Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), "container.db")
	c, err := vos.CreateContainer(path, uuid.New(), vos.Config{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCreateAndOpenContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "container.db")
	id := uuid.New()

	c, err := vos.CreateContainer(path, id, vos.Config{}, nil)
	require.NoError(t, err)

	gotID, err := c.UUID()
	require.NoError(t, err)
	require.Equal(t, id, gotID)

	wm, err := c.Watermark()
	require.NoError(t, err)
	require.Zero(t, wm)

	require.NoError(t, c.Close())

	reopened, err := vos.OpenContainer(path, vos.Config{}, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	gotID, err = reopened.UUID()
	require.NoError(t, err)
	require.Equal(t, id, gotID)
}

func TestCreateContainerRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "container.db")
	id := uuid.New()

	c, err := vos.CreateContainer(path, id, vos.Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = vos.CreateContainer(path, id, vos.Config{}, nil)
	require.True(t, vos.ErrInvalidArgument.Has(err))
}

func TestAdvanceWatermarkIsMonotone(t *testing.T) {
	c := openTestContainer(t)

	require.NoError(t, c.AdvanceWatermark(10))
	wm, err := c.Watermark()
	require.NoError(t, err)
	require.EqualValues(t, 10, wm)

	require.NoError(t, c.AdvanceWatermark(3))
	wm, err = c.Watermark()
	require.NoError(t, err)
	require.EqualValues(t, 10, wm, "watermark must never move backward")

	require.NoError(t, c.AdvanceWatermark(20))
	wm, err = c.Watermark()
	require.NoError(t, err)
	require.EqualValues(t, 20, wm)
}

func someOID(b byte) vos.ObjectID {
	var oid vos.ObjectID
	oid[0] = b
	return oid
}

func TestUpdateAndFetchSingleVisibility(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	oid := someOID(1)
	cookie := uuid.New()
	dkey := vos.Dkey("d0")
	akey := vos.Akey("a0")

	iod := vos.IOD{Akey: akey, Kind: vos.Single}

	write := func(epoch vos.Epoch, payload string) {
		sgl := vos.SGL{Payload: vos.Payload{Inline: []byte(payload)}}
		require.NoError(t, c.Update(ctx, oid, epoch, cookie, dkey, []vos.IOD{iod}, []vos.SGL{sgl}))
	}
	fetch := func(epoch vos.Epoch) vos.FetchedValue {
		vs, err := c.Fetch(ctx, oid, epoch, dkey, []vos.IOD{iod})
		require.NoError(t, err)
		require.Len(t, vs, 1)
		return vs[0]
	}

	// Nothing written yet: absent at any epoch.
	require.Zero(t, fetch(100).Size)

	write(10, "v10")
	write(20, "v20")

	require.Zero(t, fetch(5).Size, "before first write: absent")
	require.Equal(t, "v10", string(fetch(10).Bytes))
	require.Equal(t, "v10", string(fetch(15).Bytes), "visible value is the greatest stamp <= query epoch")
	require.Equal(t, "v20", string(fetch(20).Bytes))
	require.Equal(t, "v20", string(fetch(1000).Bytes))

	// A punch at epoch 30 hides the value from 30 onward but not before.
	require.NoError(t, c.Punch(ctx, oid, 30, cookie, dkey, akey, nil))
	require.Equal(t, "v20", string(fetch(29).Bytes))
	require.Zero(t, fetch(30).Size)
	require.Zero(t, fetch(1000).Size)
}

func TestUpdateAndFetchArrayPerCellVisibility(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	oid := someOID(2)
	cookie := uuid.New()
	dkey := vos.Dkey("d0")
	akey := vos.Akey("arr")

	// epoch 10: cells [0,4) = "AAAABBBBCCCCDDDD" (4 bytes each).
	iod := vos.IOD{Akey: akey, Kind: vos.Array, Recxs: []vos.Recx{{IndexLo: 0, Count: 4}}}
	sgl := vos.SGL{Payload: vos.Payload{Inline: []byte("AAAABBBBCCCCDDDD")}}
	require.NoError(t, c.Update(ctx, oid, 10, cookie, dkey, []vos.IOD{iod}, []vos.SGL{sgl}))

	// epoch 20: overwrite just cell 1 with "ZZZZ".
	iod2 := vos.IOD{Akey: akey, Kind: vos.Array, Recxs: []vos.Recx{{IndexLo: 1, Count: 1}}}
	sgl2 := vos.SGL{Payload: vos.Payload{Inline: []byte("ZZZZ")}}
	require.NoError(t, c.Update(ctx, oid, 20, cookie, dkey, []vos.IOD{iod2}, []vos.SGL{sgl2}))

	query := vos.IOD{Akey: akey, Kind: vos.Array, Recxs: []vos.Recx{{IndexLo: 0, Count: 4}}}

	cellsAt := func(epoch vos.Epoch) map[vos.Index]string {
		vs, err := c.Fetch(ctx, oid, epoch, dkey, []vos.IOD{query})
		require.NoError(t, err)
		require.Len(t, vs, 1)
		out := map[vos.Index]string{}
		for _, cell := range vs[0].Cells {
			out[cell.Index] = string(cell.Bytes)
		}
		return out
	}

	at10 := cellsAt(10)
	require.Equal(t, "AAAA", at10[0])
	require.Equal(t, "BBBB", at10[1])
	require.Equal(t, "CCCC", at10[2])
	require.Equal(t, "DDDD", at10[3])

	at20 := cellsAt(20)
	require.Equal(t, "AAAA", at20[0])
	require.Equal(t, "ZZZZ", at20[1], "cell 1 overwritten at epoch 20")
	require.Equal(t, "CCCC", at20[2])
	require.Equal(t, "DDDD", at20[3])

	// Punch cell 2 at epoch 30: only that cell disappears.
	require.NoError(t, c.Punch(ctx, oid, 30, cookie, dkey, akey, &vos.Recx{IndexLo: 2, Count: 1}))
	at30 := cellsAt(30)
	require.Equal(t, "AAAA", at30[0])
	require.Equal(t, "ZZZZ", at30[1])
	_, ok := at30[2]
	require.False(t, ok, "punched cell must be absent")
	require.Equal(t, "DDDD", at30[3])
}

func TestAkeyKindIsFixedAtFirstWrite(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	oid := someOID(3)
	cookie := uuid.New()
	dkey := vos.Dkey("d0")
	akey := vos.Akey("fixed")

	single := vos.IOD{Akey: akey, Kind: vos.Single}
	require.NoError(t, c.Update(ctx, oid, 1, cookie, dkey,
		[]vos.IOD{single}, []vos.SGL{{Payload: vos.Payload{Inline: []byte("x")}}}))

	asArray := vos.IOD{Akey: akey, Kind: vos.Array, Recxs: []vos.Recx{{IndexLo: 0, Count: 1}}}
	err := c.Update(ctx, oid, 2, cookie, dkey,
		[]vos.IOD{asArray}, []vos.SGL{{Payload: vos.Payload{Inline: []byte("y")}}})
	require.True(t, vos.ErrInvalidArgument.Has(err))
}

// TestConcurrentFetchersSeeStableSnapshot drives many readers at once
// through an errgroup, the way the teacher's own test suites fan
// concurrent goroutines out over a shared component (see e.g.
// internal/sync2's *_test.go files). bbolt's MVCC read transactions
// make this safe even though package vos otherwise assumes a single
// writer at a time (spec.md §5): every Fetch here must observe the
// same epoch-1 value regardless of how many run in parallel.
func TestConcurrentFetchersSeeStableSnapshot(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)
	oid := someOID(4)
	cookie := uuid.New()
	dkey := vos.Dkey("d0")
	akey := vos.Akey("a0")

	require.NoError(t, c.Update(ctx, oid, 1, cookie, dkey,
		[]vos.IOD{{Akey: akey, Kind: vos.Single}},
		[]vos.SGL{{Payload: vos.Payload{Inline: []byte("stable")}}}))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			got, err := c.Fetch(gctx, oid, 1, dkey, []vos.IOD{{Akey: akey, Kind: vos.Single}})
			if err != nil {
				return err
			}
			if string(got[0].Bytes) != "stable" {
				return vos.ErrProtocol.New("unexpected read: %q", got[0].Bytes)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
