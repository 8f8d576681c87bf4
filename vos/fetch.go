// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package vos

import (
	"context"

	"go.etcd.io/bbolt"

	"storj.io/vos/ktree"
	"storj.io/vos/layout"
	"storj.io/vos/objectindex"
)

// FetchedValue is what Fetch resolves for one IOD: for SINGLE, Size and
// Bytes carry the visible value directly (Size == 0 means absent or
// punch). For ARRAY, Cells carries one entry per queried index that has
// a visible, non-punch value; an index absent from Cells has no
// visible data (either nothing was ever written there, or the visible
// record at that index is a punch).
type FetchedValue struct {
	Size  uint32
	Bytes []byte
	Cells []CellValue
}

// CellValue is one resolved array cell.
type CellValue struct {
	Index Index
	Size  uint32
	Bytes []byte
}

// Fetch resolves the visible version, at epoch, of every (akey, [recx])
// named by iods (spec.md §4.3). A query epoch below the container's
// purged-epoch watermark is read as the watermark itself, since
// aggregation has collapsed the versions up to it onto that epoch. A
// missing or punched record yields a zero-size result rather than an
// error; malformed iods fail with ErrInvalidArgument.
func (c *Container) Fetch(ctx context.Context, oid ObjectID, epoch Epoch, dkey Dkey, iods []IOD) ([]FetchedValue, error) {
	if len(dkey) == 0 {
		return nil, ErrInvalidArgument.New("missing dkey")
	}
	for i, iod := range iods {
		if err := iod.validate(); err != nil {
			return nil, errAtIOD(i, err)
		}
	}

	out := make([]FetchedValue, len(iods))
	err := c.view(ctx, func(tx *bbolt.Tx) error {
		if meta := tx.Bucket(layout.BucketMeta); meta != nil {
			if raw := meta.Get(layout.MetaKeyWatermark); len(raw) == ktree.IntKeySize {
				if wm := Epoch(ktree.DecodeUint64(raw)); epoch < wm {
					epoch = wm
				}
			}
		}

		dkeys, err := objectindex.Find(tx, oid)
		if objectindex.ErrNotFound.Has(err) {
			return nil // object never written: every iod resolves to absent
		}
		if err != nil {
			return err
		}
		akeys, err := resolveDkeyBucket(dkeys, dkey, false)
		if ErrNotFound.Has(err) {
			return nil
		}
		if err != nil {
			return err
		}

		for i, iod := range iods {
			v, err := fetchOne(akeys, epoch, iod)
			if err != nil {
				return errAtIOD(i, err)
			}
			out[i] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fetchOne(akeys *bbolt.Bucket, epoch Epoch, iod IOD) (FetchedValue, error) {
	records, err := resolveAkeyBucket(akeys, iod.Akey, iod.Kind, false)
	if ErrNotFound.Has(err) {
		return FetchedValue{}, nil
	}
	if err != nil {
		return FetchedValue{}, err
	}

	switch iod.Kind {
	case Single:
		return fetchSingle(records, epoch)
	case Array:
		return fetchArray(records, epoch, iod.Recxs)
	default:
		return FetchedValue{}, ErrInvalidArgument.New("unknown iod kind %d", iod.Kind)
	}
}

// fetchSingle implements the Visibility invariant (spec.md §8): the
// record whose stamp is the greatest epoch <= the query epoch, or
// absent if none exists or that record is a punch.
func fetchSingle(records *bbolt.Bucket, epoch Epoch) (FetchedValue, error) {
	cur, err := ktree.Probe(records, ktree.LE, layout.SingleRecordKey(uint64(epoch)))
	if ktree.ErrNotFound.Has(err) {
		return FetchedValue{}, nil
	}
	if err != nil {
		return FetchedValue{}, ErrIO.Wrap(err)
	}
	_, raw, _ := cur.Fetch()
	rec, err := layout.DecodeRecord(raw)
	if err != nil {
		return FetchedValue{}, ErrProtocol.Wrap(err)
	}
	if rec.IsPunch() {
		return FetchedValue{}, nil
	}
	return FetchedValue{Size: rec.Size, Bytes: rec.Bytes}, nil
}

// fetchArray resolves each index in the union of the requested recxs
// independently: walking backward from the query epoch, the first
// record whose extent covers the index determines visibility there
// (spec.md §3's per-cell resolution for overlapping extents at
// different epochs).
func fetchArray(records *bbolt.Bucket, epoch Epoch, recxs []Recx) (FetchedValue, error) {
	var cells []CellValue
	for _, recx := range recxs {
		for idx := recx.IndexLo; idx < recx.IndexLo+Index(recx.Count); idx++ {
			cell, ok, err := resolveCell(records, epoch, idx)
			if err != nil {
				return FetchedValue{}, err
			}
			if ok {
				cells = append(cells, cell)
			}
		}
	}
	return FetchedValue{Cells: cells}, nil
}

// resolveCell finds the visible record covering idx at or before epoch.
func resolveCell(records *bbolt.Bucket, epoch Epoch, idx Index) (CellValue, bool, error) {
	cur, err := ktree.Probe(records, ktree.LE, layout.ArrayRecordKey(uint64(epoch), ^uint64(0)))
	if ktree.ErrNotFound.Has(err) {
		return CellValue{}, false, nil
	}
	if err != nil {
		return CellValue{}, false, ErrIO.Wrap(err)
	}

	for {
		key, raw, ok := cur.Fetch()
		if !ok {
			return CellValue{}, false, nil
		}
		recEpoch, indexLo := layout.ParseArrayRecordKey(key)
		if recEpoch > uint64(epoch) {
			// Shouldn't happen given the LE probe, but guards a buggy
			// Next(false) from running past the query epoch.
			return CellValue{}, false, nil
		}
		rec, err := layout.DecodeRecord(raw)
		if err != nil {
			return CellValue{}, false, ErrProtocol.Wrap(err)
		}
		if indexLo <= uint64(idx) && uint64(idx) < indexLo+rec.Count {
			if rec.IsPunch() {
				return CellValue{}, false, nil
			}
			offset := (uint64(idx) - indexLo) * uint64(rec.Size)
			return CellValue{
				Index: idx,
				Size:  rec.Size,
				Bytes: rec.Bytes[offset : offset+uint64(rec.Size)],
			}, true, nil
		}
		if err := cur.Next(false); err != nil {
			return CellValue{}, false, nil
		}
	}
}
