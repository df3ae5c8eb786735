// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// session registry, the OTP engine and the handlers to distinguish between
// different failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row, or when a
// conditional update affects none (the row changed underneath us).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing unique
// value. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
