package core

import "errors"

// Structural failures. These abort the run; row-level problems never do.
var (
	// ErrEmptyHeader is returned when a delimited source has no usable header row.
	ErrEmptyHeader = errors.New("source has no header row")

	// ErrSourceTooLarge is returned when a source exceeds the configured size limit.
	ErrSourceTooLarge = errors.New("source exceeds maximum file size")
)
