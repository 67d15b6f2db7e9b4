package core

import "errors"

// Sentinel errors for the pipeline. Callers distinguish a terminal
// empty-field result (ErrNoSourcesFound) from operator mistakes
// (ErrInvalidCoordinate, ErrInvalidTargetRate), which are reported and
// abort the run. A failed spectral fit is not an error at all: the
// estimator falls back to canonical defaults and records the fallback.
var (
	// ErrNoSourcesFound means the field of view contains no catalog
	// sources after filtering. The run ends cleanly with no pointing
	// recommendation.
	ErrNoSourcesFound = errors.New("no sources found in field of view")

	// ErrInvalidCoordinate marks a non-finite or out-of-range sky
	// coordinate.
	ErrInvalidCoordinate = errors.New("invalid sky coordinate")

	// ErrInvalidTargetRate marks a non-positive or non-finite target
	// count rate.
	ErrInvalidTargetRate = errors.New("invalid target count rate")
)
