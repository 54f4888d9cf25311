// Package repository implements the persistence layer over MySQL. Sentinel
// errors defined here let the service layer distinguish storage outcomes
// (row missing, uniqueness violation) without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no active row.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when an insert violates the unique
// username index, including the check-then-write race between two
// concurrent registrations.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrDuplicateEmail is the email counterpart of ErrDuplicateUsername.
var ErrDuplicateEmail = errors.New("email already exists")
