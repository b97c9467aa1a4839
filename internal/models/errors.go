package models

import "errors"

// Failure kinds surfaced by the ingest pipeline. Handlers map these to HTTP
// status codes with errors.Is; everything wraps one of them.
var (
	ErrValidation  = errors.New("validation failure")
	ErrStorage     = errors.New("storage failure")
	ErrDerivation  = errors.New("derivation failure")
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = errors.New("not found")
)
