package retrace

import "errors"

// Sentinel errors shared by store implementations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrSourceNotFound  = errors.New("source not found")
)
