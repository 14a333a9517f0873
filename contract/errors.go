package contract

import "errors"

// Sentinel error kinds surfaced by the vault. Each mutating operation either
// commits its whole write set or fails with one of these before touching
// state; callers match with errors.Is and decide whether to retry with
// corrected input.
var (
	ErrNotAuthorized   = errors.New("not authorized")
	ErrNotFound        = errors.New("not found")
	ErrInactive        = errors.New("institution inactive")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyUsed     = errors.New("fingerprint already used")
	ErrAlreadyRevoked  = errors.New("already revoked")
	ErrPaused          = errors.New("vault paused")
)
