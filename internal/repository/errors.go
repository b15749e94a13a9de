// Package repository holds the database/sql data access for the planetarium
// catalog, reservations and accounts. Repositories join the transaction
// carried by the context (see database.WithTx) when there is one.
//
// The sentinel errors below let handlers and services tell failure
// scenarios apart without inspecting driver errors.
package repository

import "errors"

var (
	ErrShowNotFound        = errors.New("astronomy show not found")
	ErrThemeNotFound       = errors.New("show theme not found")
	ErrDomeNotFound        = errors.New("planetarium dome not found")
	ErrSessionNotFound     = errors.New("show session not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrUserNotFound        = errors.New("user not found")
)

// ErrEmailExists is returned when registering an address twice.
var ErrEmailExists = errors.New("email already exists")

// ErrSeatTaken is returned when a ticket would violate the
// (show_session, row, seat) unique index.
var ErrSeatTaken = errors.New("seat already taken for this show session")

// ErrInvalidReference is returned when a foreign key points nowhere.
var ErrInvalidReference = errors.New("referenced record does not exist")
