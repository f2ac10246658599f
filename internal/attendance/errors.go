package attendance

import "errors"

var (
	// ErrEmptyBatch is returned when no valid rows remain after filtering.
	// The caller must surface it to the operator and must not submit.
	ErrEmptyBatch = errors.New("no valid data to send")

	// ErrMixedDates is returned under the reject policy when an upload spans
	// more than one calendar date.
	ErrMixedDates = errors.New("upload spans multiple dates")
)
