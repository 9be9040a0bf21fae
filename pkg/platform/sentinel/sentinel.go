package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors with proper codes.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: uniqueness constraint violated (e.g. duplicate registration)
// - ErrCapacityExceeded: conditional admission update affected zero rows
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrIntegrity: stored counters disagree with the record set
// - ErrUnavailable: backing store temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrInvalidState     = errors.New("invalid state")
	ErrIntegrity        = errors.New("integrity violation")
	ErrUnavailable      = errors.New("unavailable")
)
