// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let handlers distinguish failure
// scenarios without string matching.  Ownership is deliberately folded
// into "not found": probing another user's records is indistinguishable
// from probing absent ones.
package repository

import "errors"

// ErrNotFound is returned when a record does not exist or is not owned by
// the calling user.  Handlers should translate this into an HTTP 404
// response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as marking a dose that is already taken or
// missed.  Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
