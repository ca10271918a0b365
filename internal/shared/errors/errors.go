package errors

import "errors"

// Domain errors
var (
	// Observation errors
	ErrMalformedObservation = errors.New("observation is missing required fields")
	ErrEmptyHost            = errors.New("host cannot be empty")
	ErrMissingURL           = errors.New("observation URL cannot be nil")

	// Finding errors
	ErrUnknownKind    = errors.New("unknown finding kind")
	ErrEmptyKind      = errors.New("finding kind cannot be empty")
	ErrInvalidFinding = errors.New("invalid finding")

	// Store / journal errors
	ErrJournalClosed   = errors.New("journal is closed")
	ErrJournalAppend   = errors.New("journal append failed")
	ErrCatalogueDecode = errors.New("catalogue record could not be decoded")

	// Import errors
	ErrUnrecognizedScanOutput = errors.New("unrecognized scan output format")
)
