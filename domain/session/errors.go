package session

import "errors"

// Store errors. All are connection-scoped and non-fatal; the router maps
// them to error frames for the offending peer only.
var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFull     = errors.New("session is full")
)
