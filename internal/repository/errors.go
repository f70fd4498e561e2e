// Package repository implements the persistence layer over database/sql.
// It defines sentinel error values shared by the repositories so higher
// layers can branch on failure kind without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or has been
// soft-deleted. Handlers translate this into an HTTP 404; the auth
// resolver collapses it into its opaque unauthorized error instead, so
// probing tokens cannot reveal whether an account exists.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when an insert or update violates the
// unique constraint on users.username. Handlers translate this into an
// HTTP 409 response.
var ErrUsernameTaken = errors.New("username already exists")
