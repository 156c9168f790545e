// Package repository implements raw-SQL data access over database/sql.
// This file defines sentinel errors shared across repositories.  Handlers
// use them to map failure scenarios onto HTTP status codes: ErrConflict
// and ErrInvalidTransition become 409, ErrEmailExists becomes 409 on
// registration.
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot proceed because
// of dependent records, such as deleting a customer that still has
// reservations.
var ErrConflict = errors.New("conflict")

// ErrInvalidTransition is returned when a guarded status update matched
// no rows because the record was not in an expected source status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrEmailExists is returned when a user registration collides with an
// existing email address.
var ErrEmailExists = errors.New("email already exists")
