package core

import "errors"

// Validation sentinels returned by the public constructors and Trace.
// Callers match them with errors.Is; the wrapped message names the
// offending value.
var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidElevation = errors.New("invalid elevation")
	ErrInvalidFoF2      = errors.New("invalid foF2")
	ErrInvalidDistance  = errors.New("invalid distance")
	ErrInvalidStep      = errors.New("invalid step")
	ErrNilMedium        = errors.New("nil medium")
)
