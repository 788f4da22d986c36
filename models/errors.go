package models

import "errors"

// ErrEmptyField is returned when a required StartupInput field is empty or
// whitespace-only.
var ErrEmptyField = errors.New("required field is empty")

// ErrNoAnalysis is returned when no complete (input, result) pair exists for a
// session. A pair with either half missing or a stale schema version reads the
// same as never having been saved.
var ErrNoAnalysis = errors.New("no analysis saved")
