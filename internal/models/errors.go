package models

import "errors"

// Sentinel errors for the service. Handlers map these onto the response
// envelope; lower layers wrap them with fmt.Errorf("...: %w", err) so the
// diagnostic detail survives into the "details" field.
var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage failure")
	ErrServiceUnreachable = errors.New("highlight service unreachable")
	ErrService            = errors.New("highlight service error")
	ErrDatabase           = errors.New("database failure")
)
