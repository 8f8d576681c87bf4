// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package handle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/vos/handle"
)

func TestSlabAllocGetRelease(t *testing.T) {
	var removed []handle.ID
	s := handle.NewSlab[string](func(id handle.ID, v string) {
		removed = append(removed, id)
	})

	id, err := s.Alloc("container-a")
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	v, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, "container-a", v)

	// two refs now: the Alloc ref and the Get ref.
	require.NoError(t, s.Release(id))
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Release(id))
	require.Equal(t, 0, s.Len())
	require.Equal(t, []handle.ID{id}, removed)

	_, err = s.Get(id)
	require.True(t, handle.ErrNoHandle.Has(err))
}

func TestSlabCloseRefusesWithLiveHandles(t *testing.T) {
	s := handle.NewSlab[int](nil)
	id, err := s.Alloc(42)
	require.NoError(t, err)

	require.Error(t, s.Close())

	require.NoError(t, s.Release(id))
	require.NoError(t, s.Close())

	_, err = s.Alloc(1)
	require.True(t, handle.ErrClosed.Has(err))
}
