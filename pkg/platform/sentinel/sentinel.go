package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrAlreadyUsed: identifier already claimed (unique constraint, reservation)
// - ErrConflict: concurrent modification detected
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation failures (bad input, missing fields), use the changeset's
// accumulated errors or pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
