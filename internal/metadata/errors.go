package metadata

import "errors"

var (
	ErrMissingFilename = errors.New("metadata: record has no filename")
	ErrNotFound        = errors.New("metadata: no record for image")
	ErrInvalidVerdict  = errors.New("metadata: invalid verdict")
	ErrInvalidSignal   = errors.New("metadata: invalid review signal")
)
