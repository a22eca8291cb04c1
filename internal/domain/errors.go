package domain

import "errors"

// Sentinel errors forming the package's error taxonomy. Components wrap
// these with fmt.Errorf("...: %w", ...) so callers can still use errors.Is.
var (
	// ErrExeMissing is returned when a snapshot references an exe path that
	// was not present among the reconstituted exe records.
	ErrExeMissing = errors.New("exe missing from snapshot")

	// ErrMapMissing is returned when a snapshot references a map key that
	// was not present among the reconstituted map records.
	ErrMapMissing = errors.New("map missing from snapshot")

	// ErrScanFailed marks a hard scanner failure (e.g. /proc unavailable),
	// which aborts the current tick.
	ErrScanFailed = errors.New("scan failed")

	// ErrSnapshotSchema marks a snapshot whose schema_version the
	// repository does not know how to reconstitute.
	ErrSnapshotSchema = errors.New("unsupported snapshot schema version")
)
