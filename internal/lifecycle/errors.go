package lifecycle

import "errors"

var (
	// ErrNotFound - the shipment does not exist.
	ErrNotFound = errors.New("shipment not found")

	// ErrVersionConflict - the persisted version no longer matches the
	// caller's expected version. The caller must refetch and retry; the
	// engine never retries on its own.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidTransition - the target status is not a legal successor of
	// the current status. No state change.
	ErrInvalidTransition = errors.New("invalid transition")
)
