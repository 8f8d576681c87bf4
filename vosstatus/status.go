// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package vosstatus maps the §7 error classes package vos raises onto
// a small status enum, for collaborators that need one instead of a Go
// error value — modeled on the teacher's private/errs2.CodeMap plus
// pkg/rpc/rpcstatus pairing of error classes to wire status codes.
package vosstatus

import (
	"github.com/zeebo/errs"

	"storj.io/vos"
)

// Status is a collaborator-facing status code, analogous to
// rpcstatus.StatusCode in the teacher's RPC layer.
type Status int

const (
	OK Status = iota
	InvalidArgument
	NotFound
	NoHandle
	NotPermitted
	OutOfMemory
	IO
	Protocol
	TimedOut
	NoSpace
	Retryable
	Unknown
)

// codeMap pairs each §7 error class with its Status, checked in order
// so the first (and only) match wins — mirrors the teacher's
// private/errs2.CodeMap construction.
var codeMap = []struct {
	class  *errs.Class
	status Status
}{
	{&vos.ErrInvalidArgument, InvalidArgument},
	{&vos.ErrNotFound, NotFound},
	{&vos.ErrNoHandle, NoHandle},
	{&vos.ErrNotPermitted, NotPermitted},
	{&vos.ErrOutOfMemory, OutOfMemory},
	{&vos.ErrIO, IO},
	{&vos.ErrProtocol, Protocol},
	{&vos.ErrTimedOut, TimedOut},
	{&vos.ErrNoSpace, NoSpace},
	{&vos.ErrRetryable, Retryable},
}

// Code classifies err into a Status. A nil error maps to OK; an error
// that doesn't belong to any of the ten §7 classes maps to Unknown
// (the core never raises these directly, but a collaborator wrapping
// unrelated errors through the same path should still get a sane
// default rather than a panic).
func Code(err error) Status {
	if err == nil {
		return OK
	}
	for _, entry := range codeMap {
		if entry.class.Has(err) {
			return entry.status
		}
	}
	return Unknown
}

// String renders a Status the way a log line or status page would.
func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case NoHandle:
		return "no_handle"
	case NotPermitted:
		return "not_permitted"
	case OutOfMemory:
		return "out_of_memory"
	case IO:
		return "io"
	case Protocol:
		return "protocol"
	case TimedOut:
		return "timed_out"
	case NoSpace:
		return "no_space"
	case Retryable:
		return "retryable"
	default:
		return "unknown"
	}
}
