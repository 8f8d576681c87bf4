// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"storj.io/vos/layout"
	"storj.io/vos/objectindex"
)

// Update applies iods/sgls, in order, to oid at epoch, recorded under
// cookie (spec.md §4.3). If oid does not exist yet, it is created with
// first_epoch = epoch. All iods of one call are written in a single
// bbolt transaction: on a per-iod failure the operation reports the
// error and the transaction is rolled back, so the writes of earlier
// iods in the same call are not kept either.
func (c *Container) Update(ctx context.Context, oid ObjectID, epoch Epoch, cookie Cookie, dkey Dkey, iods []IOD, sgls []SGL) error {
	if len(dkey) == 0 {
		return ErrInvalidArgument.New("missing dkey")
	}
	if len(iods) != len(sgls) {
		return ErrInvalidArgument.New("iods/sgls length mismatch: %d vs %d", len(iods), len(sgls))
	}
	for i, iod := range iods {
		if err := iod.validate(); err != nil {
			return errAtIOD(i, err)
		}
	}

	return c.txn(ctx, func(tx *bbolt.Tx) error {
		dkeys, err := objectindex.FindOrAlloc(tx, oid, uint64(epoch))
		if err != nil {
			return err
		}
		akeys, err := resolveDkeyBucket(dkeys, dkey, true)
		if err != nil {
			return err
		}
		for i, iod := range iods {
			if err := applyIOD(akeys, epoch, cookie, iod, sgls[i]); err != nil {
				return errAtIOD(i, err)
			}
		}
		return nil
	})
}

// applyIOD writes one iod's records into akeys, the dkey's akey
// bucket.
func applyIOD(akeys *bbolt.Bucket, epoch Epoch, cookie Cookie, iod IOD, sgl SGL) error {
	records, err := resolveAkeyBucket(akeys, iod.Akey, iod.Kind, true)
	if err != nil {
		return err
	}

	switch iod.Kind {
	case Single:
		rec := layout.Record{
			Cookie: cookie,
			Size:   uint32(len(sgl.Payload.Inline)),
			Bytes:  sgl.Payload.Inline,
		}
		return records.Put(layout.SingleRecordKey(uint64(epoch)), rec.Encode())

	case Array:
		// sgl.Payload.Inline is the concatenation, in recx order, of each
		// recx's cells; cell width is recovered by spreading the payload
		// evenly across the iod's total cell count (the common case is a
		// single recx, where this is just len(Inline)/Count). A punch
		// (empty payload) yields size-per-cell 0 for every recx.
		var totalCount uint64
		for _, recx := range iod.Recxs {
			if recx.Count == 0 {
				return ErrInvalidArgument.New("recx with zero count")
			}
			totalCount += recx.Count
		}
		var perCell uint32
		if len(sgl.Payload.Inline) > 0 {
			if uint64(len(sgl.Payload.Inline))%totalCount != 0 {
				return ErrInvalidArgument.New(
					"payload length %d not divisible by cell count %d", len(sgl.Payload.Inline), totalCount)
			}
			perCell = uint32(uint64(len(sgl.Payload.Inline)) / totalCount)
		}

		var offset uint64
		for _, recx := range iod.Recxs {
			var cellBytes []byte
			if perCell > 0 {
				n := recx.Count * uint64(perCell)
				cellBytes = sgl.Payload.Inline[offset : offset+n]
				offset += n
			}
			rec := layout.Record{
				Cookie: cookie,
				Size:   perCell,
				Count:  recx.Count,
				Bytes:  cellBytes,
			}
			key := layout.ArrayRecordKey(uint64(epoch), uint64(recx.IndexLo))
			if err := records.Put(key, rec.Encode()); err != nil {
				return err
			}
		}
		return nil

	default:
		return ErrInvalidArgument.New("unknown iod kind %d", iod.Kind)
	}
}

func errAtIOD(i int, err error) error {
	return fmt.Errorf("iod %d: %w", i, err)
}
