package model

import "github.com/rotisserie/eris"

// Sentinel error kinds shared by the model and the storage backends. Check
// with eris.Is.
var (
	// ErrInvalidArgument marks malformed input: duplicate admin levels,
	// misconfiguration, a nil backend handle.
	ErrInvalidArgument = eris.New("invalid argument")

	// ErrOutOfRange marks an admin level outside the supported range.
	ErrOutOfRange = eris.New("out of range")
)
