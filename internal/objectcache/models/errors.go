package models

import "errors"

var (
	// ErrConsistency means the object side and the identity side of the
	// index disagree about an adapter. It is never retried.
	ErrConsistency = errors.New("identity map inconsistent")
	// ErrIllegalTransition is returned for resolve state changes outside
	// Transient->Resolved and Ghost->Resolved.
	ErrIllegalTransition = errors.New("illegal resolve state transition")
	// ErrConcurrency reports an optimistic lock conflict between versions.
	ErrConcurrency = errors.New("concurrent modification")
	// ErrNotTransient is returned when promoting an oid that is already persistent.
	ErrNotTransient = errors.New("oid is not transient")
	// ErrAggregatedOid is returned when a root-only operation is applied to an aggregated oid.
	ErrAggregatedOid = errors.New("oid is aggregated")
)
