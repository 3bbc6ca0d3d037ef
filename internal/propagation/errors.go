package propagation

import "errors"

// Sentinel failures shared by all models. Both are detected at evaluation
// time, never at initialization: a record can initialize cleanly and still
// decay at a later tsince.
var (
	// ErrDecayed reports that drag has pushed the mean elements outside
	// the region where the analytic theory holds.
	ErrDecayed = errors.New("satellite has decayed")

	// ErrNegativeSemiLatusRectum reports a degenerate osculating orbit
	// produced by extreme perturbation inputs.
	ErrNegativeSemiLatusRectum = errors.New("semi-latus rectum is negative")
)
