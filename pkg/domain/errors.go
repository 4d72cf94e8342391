package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when starting a session whose ID is already in use.
var ErrSessionExists = errors.New("session already exists")

// ErrInvalidSessionID is returned for IDs that cannot be used as storage keys.
var ErrInvalidSessionID = errors.New("invalid session id")
