// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package vos implements the Versioned Object Store core: the
// hierarchical container -> object -> dkey -> akey -> record model,
// its epoch-visibility rules, and the Fetch/Update/Punch operations
// spec.md §4.3 describes. The epoch-range discard and aggregation
// operators live in the sibling discard and aggregate packages and are
// exposed here as thin wrapper methods so a caller only needs to
// import package vos.
package vos

import (
	"context"
	"encoding/binary"
	"os"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"storj.io/vos/collab"
	"storj.io/vos/handle"
	"storj.io/vos/layout"
)

// Container is a single VOS container: the root of an object index,
// all subtrees reachable from it, and a header carrying the UUID,
// purged-epoch watermark, and format version (spec.md §3, §6).
//
// Scheduling model: a Container assumes it is driven by exactly one
// execution context at a time (spec.md §5) — it takes advantage of the
// lack of preemption to elide internal locking on the hot path. It is
// the caller's responsibility (typically the replicated-log layer
// above) to serialize concurrent writers before they reach a
// Container.
type Container struct {
	db     *bbolt.DB
	log    *zap.Logger
	config Config

	leadership collab.LeadershipCallbacks
	iters      *handle.Slab[*openIter]
	iterSem    *semaphore.Weighted
}

// CreateContainer initializes a new container at path with the given
// UUID and opens it. It fails if a container already exists at path.
func CreateContainer(path string, id uuid.UUID, config Config, log *zap.Logger) (*Container, error) {
	if config.FormatVersion == 0 {
		config.FormatVersion = DefaultFormatVersion
	}
	if config.BulkThreshold == 0 {
		config.BulkThreshold = DefaultBulkThreshold
	}
	if config.MaxConcurrentIterators == 0 {
		config.MaxConcurrentIterators = DefaultMaxConcurrentIterators
	}
	if log == nil {
		log = zap.NewNop()
	}

	if _, err := os.Stat(path); err == nil {
		return nil, ErrInvalidArgument.New("container already exists at %s", path)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, ErrIO.Wrap(err)
	}

	c := &Container{
		db: db, log: log, config: config,
		iters:   handle.NewSlab(onIterRemove),
		iterSem: semaphore.NewWeighted(config.MaxConcurrentIterators),
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(layout.BucketMeta)
		if err != nil {
			return errs.Wrap(err)
		}
		if err := meta.Put(layout.MetaKeyUUID, id[:]); err != nil {
			return errs.Wrap(err)
		}
		if err := meta.Put(layout.MetaKeyWatermark, ktreeUint64(0)); err != nil {
			return errs.Wrap(err)
		}
		if err := meta.Put(layout.MetaKeyFormat, ktreeUint32(config.FormatVersion)); err != nil {
			return errs.Wrap(err)
		}
		_, err = tx.CreateBucketIfNotExists(layout.BucketObjects)
		if err != nil {
			return errs.Wrap(err)
		}
		_, err = tx.CreateBucketIfNotExists(layout.BucketObjMeta)
		return errs.Wrap(err)
	})
	if err != nil {
		_ = db.Close()
		return nil, ErrIO.Wrap(err)
	}
	return c, nil
}

// OpenContainer opens an existing container at path.
func OpenContainer(path string, config Config, log *zap.Logger) (*Container, error) {
	if config.FormatVersion == 0 {
		config.FormatVersion = DefaultFormatVersion
	}
	if config.MaxConcurrentIterators == 0 {
		config.MaxConcurrentIterators = DefaultMaxConcurrentIterators
	}
	if log == nil {
		log = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, ErrIO.Wrap(err)
	}
	c := &Container{
		db: db, log: log, config: config,
		iters:   handle.NewSlab(onIterRemove),
		iterSem: semaphore.NewWeighted(config.MaxConcurrentIterators),
	}

	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(layout.BucketMeta)
		if meta == nil {
			return ErrProtocol.New("container header missing at %s", path)
		}
		raw := meta.Get(layout.MetaKeyFormat)
		if len(raw) != 4 || binary.BigEndian.Uint32(raw) != config.FormatVersion {
			return ErrProtocol.New("container at %s has format %x, expected %d", path, raw, config.FormatVersion)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the container's underlying database handle. Per
// spec.md §5, a container may not be torn down while any live iterator
// or object handle still references it: Close fails not-permitted if
// any OpenIterator session has not been closed yet.
func (c *Container) Close() error {
	if err := c.iters.Close(); err != nil {
		return ErrNotPermitted.Wrap(err)
	}
	return ErrIO.Wrap(c.db.Close())
}

// DB exposes the underlying bbolt database so callers can run the
// iter/discard/aggregate engine functions directly against the same
// buckets Fetch/Update/Punch operate on, without those packages
// re-implementing container bootstrap.
func (c *Container) DB() *bbolt.DB { return c.db }

// Config returns the container's active configuration.
func (c *Container) Config() Config { return c.config }

// Logger returns the container's structured logger.
func (c *Container) Logger() *zap.Logger { return c.log }

// UUID returns the container's identity.
func (c *Container) UUID() (uuid.UUID, error) {
	var id uuid.UUID
	err := c.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(layout.BucketMeta)
		raw := meta.Get(layout.MetaKeyUUID)
		parsed, err := uuid.FromBytes(raw)
		if err != nil {
			return ErrProtocol.Wrap(err)
		}
		id = parsed
		return nil
	})
	return id, err
}

// Watermark returns the container's purged-epoch watermark: the upper
// bound of the last aggregation range that ran to completion (spec.md
// §3, §4.3).
func (c *Container) Watermark() (uint64, error) {
	var wm uint64
	err := c.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(layout.BucketMeta)
		wm = binary.BigEndian.Uint64(meta.Get(layout.MetaKeyWatermark))
		return nil
	})
	return wm, err
}

// AdvanceWatermark sets the watermark to max(current, hi).
// EpochAggregate calls it once an aggregation finishes; callers that
// go through EpochAggregate never need to call it directly.
func (c *Container) AdvanceWatermark(hi uint64) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(layout.BucketMeta)
		cur := binary.BigEndian.Uint64(meta.Get(layout.MetaKeyWatermark))
		if hi > cur {
			return meta.Put(layout.MetaKeyWatermark, ktreeUint64(hi))
		}
		return nil
	})
}

// RegisterLeadership installs the callbacks the transactional-KV
// collaborator above invokes on leadership transitions (spec.md §6).
// The core never calls these itself; it only stores the registration
// so that whichever collaborator drives step_up/step_down can reach
// them through the container.
func (c *Container) RegisterLeadership(cb collab.LeadershipCallbacks) {
	c.leadership = cb
}

// Leadership returns the currently registered leadership callbacks, or
// nil if none have been registered.
func (c *Container) Leadership() collab.LeadershipCallbacks {
	return c.leadership
}

// txn runs fn inside a read-write bbolt transaction, translating bbolt
// errors into vos error classes so callers never see a raw bbolt error.
func (c *Container) txn(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return ErrTimedOut.Wrap(err)
	}
	if err := c.db.Update(fn); err != nil {
		if isClassified(err) {
			return err
		}
		return ErrIO.Wrap(err)
	}
	return nil
}

// view runs fn inside a read-only bbolt transaction.
func (c *Container) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return ErrTimedOut.Wrap(err)
	}
	if err := c.db.View(fn); err != nil {
		if isClassified(err) {
			return err
		}
		return ErrIO.Wrap(err)
	}
	return nil
}

// isClassified reports whether err already belongs to one of the §7
// error kinds, so txn/view don't re-wrap it in ErrIO and obscure the
// original classification.
func isClassified(err error) bool {
	for _, class := range layout.AllClasses {
		if class.Has(err) {
			return true
		}
	}
	return false
}

func ktreeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func ktreeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
