// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vosstatus_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/vos"
	"storj.io/vos/vosstatus"
)

func TestCode(t *testing.T) {
	require.Equal(t, vosstatus.OK, vosstatus.Code(nil))
	require.Equal(t, vosstatus.NotFound, vosstatus.Code(vos.ErrNotFound.New("x")))
	require.Equal(t, vosstatus.InvalidArgument, vosstatus.Code(vos.ErrInvalidArgument.New("x")))
	require.Equal(t, vosstatus.Unknown, vosstatus.Code(errors.New("plain")))
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "not_found", vosstatus.NotFound.String())
	require.Equal(t, "unknown", vosstatus.Unknown.String())
}
