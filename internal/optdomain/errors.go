package optdomain

import "errors"

// Package-level sentinel errors. Handlers map these to the E.* error
// codes in the external API; the orchestrator returns them directly
// so callers can use errors.Is.
var (
	ErrParamInvalid = errors.New("param invalid")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")

	ErrJobNotFound  = errors.New("optimization job not found")
	ErrTaskNotFound = errors.New("optimization task not found")
)
