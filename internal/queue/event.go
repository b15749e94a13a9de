// Package queue carries reservation events over RabbitMQ: a publisher used
// after successful commits and a consumer that appends them to a log file.
package queue

// QueueName is the durable queue every reservation event is routed to.
const QueueName = "planetarium.reservations"

const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationCancelled = "reservation.cancelled"
)

// SeatRef names one seat of a show session.
type SeatRef struct {
	ShowSessionID uint64 `json:"show_session"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
}

// ReservationEvent is enough for downstream consumers to log or notify
// without querying the primary database.
type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	UserID        uint64    `json:"user_id"`
	Seats         []SeatRef `json:"seats"`
	OccurredAt    string    `json:"occurred_at"`
}
