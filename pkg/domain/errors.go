package domain

import "errors"

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned by stores when a unique key is already taken.
// Callers treat it as a soft outcome, never as a fault.
var ErrAlreadyExists = errors.New("already exists")

// ErrConflict is returned when a conditional write finds the record in another state.
var ErrConflict = errors.New("conflict")

// ErrSessionNotFound is returned when a session cannot be found in the session store.
var ErrSessionNotFound = errors.New("session not found")
