// Package repository defines the persistence layer over MySQL and the
// sentinel error values shared across repositories. Sentinels let
// handlers distinguish failure scenarios without inspecting driver
// errors: ErrNotFound covers both absent rows and rows the caller is
// not allowed to act on, while ErrConflict signals state that blocks
// the operation (e.g. deleting a user who still owns notes).
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist, or
// exists but is not owned by the acting user. Handlers should
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registration hits the unique email
// constraint. Handlers should translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a mutation cannot proceed because of
// conflicting state, such as deleting a user who still owns notes or
// revising a version that already has a successor. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
