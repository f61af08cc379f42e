package engine

import "errors"

var (
	// ErrNotReady indicates the exchange has no saved names yet.
	ErrNotReady = errors.New("exchange has no participants yet; save names first")

	// ErrNotDrawn indicates no assignment has been generated yet.
	ErrNotDrawn = errors.New("no assignment has been drawn yet")

	// ErrTooFewNames is returned when fewer than two distinct names are given.
	ErrTooFewNames = errors.New("at least 2 participants are required")

	// ErrUnknownName is returned for a name missing from the roster.
	ErrUnknownName = errors.New("unknown participant name")

	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidExchangeID is returned for ids that are not short slugs.
	ErrInvalidExchangeID = errors.New("invalid exchange id; use lowercase letters, digits, '.', '_' or '-'")

	// ErrAdminPasswordUnset is returned when no admin password hash is configured.
	ErrAdminPasswordUnset = errors.New("admin password hash not configured; run santa admin hash-password")

	// ErrInvalidAssignment is returned when a strategy hands back a mapping the matrix forbids.
	ErrInvalidAssignment = errors.New("strategy returned an invalid assignment")
)
