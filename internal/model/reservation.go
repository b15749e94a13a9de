package model

import "time"

// Reservation belongs to exactly one user and owns its tickets.
type Reservation struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	Tickets   []Ticket  `json:"tickets"`
}

// Ticket is a single (row, seat) in a show session.
type Ticket struct {
	ID            uint64 `json:"id"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
	ShowSessionID uint64 `json:"show_session"`
	ReservationID uint64 `json:"reservation"`
}

// TicketSpec is a requested seat before it is persisted.
type TicketSpec struct {
	ShowSessionID uint64 `json:"show_session"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
}
