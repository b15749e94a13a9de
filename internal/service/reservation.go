// Package service holds the reservation workflow: validating requested
// seats, writing a reservation with its tickets atomically, and announcing
// the result on the message queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/queue"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

// ErrNoTickets rejects a reservation without tickets before any write.
var ErrNoTickets = errors.New("a reservation needs at least one ticket")

// TicketError pins a rejected seat to its position in the request. Index
// is -1 for a standalone ticket. Field is empty when the seat as a whole is
// at fault rather than a single attribute.
type TicketError struct {
	Index       int
	Field       string
	Reason      string
	ShowSession uint64
	Row         int
	Seat        int
}

func (e *TicketError) Error() string {
	return fmt.Sprintf("ticket %d (show_session=%d row=%d seat=%d): %s", e.Index, e.ShowSession, e.Row, e.Seat, e.Reason)
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type SessionLayouts interface {
	Layout(ctx context.Context, sessionID uint64) (model.PlanetariumDome, error)
}

type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	SeatTaken(ctx context.Context, sessionID uint64, row, seat int, excludeReservation, excludeTicket uint64) (bool, error)
	DeleteByReservation(ctx context.Context, reservationID uint64) error
}

type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error)
	DeleteForUser(ctx context.Context, id, userID uint64) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// ReservationService books seats. Publisher may be nil.
type ReservationService struct {
	tx           Transactor
	sessions     SessionLayouts
	tickets      TicketStore
	reservations ReservationStore
	publisher    EventPublisher
	log          *logger.Logger
	now          func() time.Time

	pending sync.WaitGroup
}

func NewReservationService(tx Transactor, sessions SessionLayouts, tickets TicketStore, reservations ReservationStore, publisher EventPublisher, log *logger.Logger) *ReservationService {
	if tx == nil || sessions == nil || tickets == nil || reservations == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReservationService{
		tx:           tx,
		sessions:     sessions,
		tickets:      tickets,
		reservations: reservations,
		publisher:    publisher,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create books every spec for userID in one transaction: either the
// reservation and all its tickets persist or nothing does.
func (s *ReservationService) Create(ctx context.Context, userID uint64, specs []model.TicketSpec) (*model.Reservation, error) {
	if len(specs) == 0 {
		return nil, ErrNoTickets
	}
	res := &model.Reservation{UserID: userID, CreatedAt: s.now()}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.checkSeats(ctx, specs, 0); err != nil {
			return err
		}
		if err := s.reservations.Create(ctx, res); err != nil {
			return err
		}
		return s.insertTickets(ctx, res, specs)
	})
	if err != nil {
		return nil, err
	}
	s.log.LogReservation("created", res.ID, fmt.Sprintf("user=%d tickets=%d", userID, len(res.Tickets)))
	s.announce(queue.EventReservationCreated, res)
	return res, nil
}

// Replace swaps the ticket set of the user's reservation under the same
// rules as Create. The reservation's current seats do not block its new
// ones.
func (s *ReservationService) Replace(ctx context.Context, userID, reservationID uint64, specs []model.TicketSpec) (*model.Reservation, error) {
	if len(specs) == 0 {
		return nil, ErrNoTickets
	}
	var res *model.Reservation
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if res, err = s.reservations.GetForUser(ctx, reservationID, userID); err != nil {
			return err
		}
		if err := s.checkSeats(ctx, specs, res.ID); err != nil {
			return err
		}
		if err := s.tickets.DeleteByReservation(ctx, res.ID); err != nil {
			return err
		}
		return s.insertTickets(ctx, res, specs)
	})
	if err != nil {
		return nil, err
	}
	s.log.LogReservation("updated", res.ID, fmt.Sprintf("user=%d tickets=%d", userID, len(res.Tickets)))
	s.announce(queue.EventReservationUpdated, res)
	return res, nil
}

// Cancel deletes the user's reservation and, by cascade, its tickets.
func (s *ReservationService) Cancel(ctx context.Context, userID, reservationID uint64) error {
	var res *model.Reservation
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if res, err = s.reservations.GetForUser(ctx, reservationID, userID); err != nil {
			return err
		}
		return s.reservations.DeleteForUser(ctx, reservationID, userID)
	})
	if err != nil {
		return err
	}
	s.log.LogReservation("cancelled", res.ID, fmt.Sprintf("user=%d", userID))
	s.announce(queue.EventReservationCancelled, res)
	return nil
}

// CheckTicket validates a single ticket written outside the booking flow.
// excludeTicket is the ticket's own id on update.
func (s *ReservationService) CheckTicket(ctx context.Context, t model.Ticket, excludeTicket uint64) error {
	spec := model.TicketSpec{ShowSessionID: t.ShowSessionID, Row: t.Row, Seat: t.Seat}
	if err := s.checkSpec(ctx, -1, spec); err != nil {
		return err
	}
	taken, err := s.tickets.SeatTaken(ctx, spec.ShowSessionID, spec.Row, spec.Seat, 0, excludeTicket)
	if err != nil {
		return err
	}
	if taken {
		return seatError(-1, "", "seat already taken", spec)
	}
	return nil
}

// Wait blocks until queued event publishes have finished.
func (s *ReservationService) Wait() { s.pending.Wait() }

type seatKey struct {
	session   uint64
	row, seat int
}

// checkSeats runs inside the transaction. The unique index still guards
// against a concurrent writer slipping in between check and insert.
func (s *ReservationService) checkSeats(ctx context.Context, specs []model.TicketSpec, excludeReservation uint64) error {
	seen := make(map[seatKey]int, len(specs))
	for i, spec := range specs {
		if err := s.checkSpec(ctx, i, spec); err != nil {
			return err
		}
		k := seatKey{spec.ShowSessionID, spec.Row, spec.Seat}
		if first, dup := seen[k]; dup {
			return seatError(i, "", fmt.Sprintf("duplicate of tickets[%d] in this request", first), spec)
		}
		seen[k] = i
		taken, err := s.tickets.SeatTaken(ctx, spec.ShowSessionID, spec.Row, spec.Seat, excludeReservation, 0)
		if err != nil {
			return err
		}
		if taken {
			return seatError(i, "", "seat already taken", spec)
		}
	}
	return nil
}

func (s *ReservationService) checkSpec(ctx context.Context, i int, spec model.TicketSpec) error {
	if spec.ShowSessionID == 0 {
		return seatError(i, "show_session", "this field is required", spec)
	}
	dome, err := s.sessions.Layout(ctx, spec.ShowSessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return seatError(i, "show_session", fmt.Sprintf("show session %d does not exist", spec.ShowSessionID), spec)
	}
	if err != nil {
		return err
	}
	if dome.InBounds(spec.Row, spec.Seat) {
		return nil
	}
	if !dome.RowInBounds(spec.Row) {
		return seatError(i, "row", fmt.Sprintf("row must be in range [1, %d]", dome.Rows), spec)
	}
	return seatError(i, "seat", fmt.Sprintf("seat must be in range [1, %d]", dome.SeatsInRow), spec)
}

// insertTickets writes one row per spec so a unique violation names the
// seat that lost the race. Rows go in in seat order so two bookings over
// the same seats take their index locks in the same order; res.Tickets
// keeps the request order.
func (s *ReservationService) insertTickets(ctx context.Context, res *model.Reservation, specs []model.TicketSpec) error {
	res.Tickets = make([]model.Ticket, len(specs))
	for _, i := range seatOrder(specs) {
		spec := specs[i]
		t := model.Ticket{Row: spec.Row, Seat: spec.Seat, ShowSessionID: spec.ShowSessionID, ReservationID: res.ID}
		if err := s.tickets.Create(ctx, &t); err != nil {
			if errors.Is(err, repository.ErrSeatTaken) {
				return seatError(i, "", "seat already taken", spec)
			}
			return err
		}
		res.Tickets[i] = t
	}
	return nil
}

// seatOrder returns the indexes of specs sorted by (session, row, seat).
func seatOrder(specs []model.TicketSpec) []int {
	order := make([]int, len(specs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := specs[order[a]], specs[order[b]]
		if x.ShowSessionID != y.ShowSessionID {
			return x.ShowSessionID < y.ShowSessionID
		}
		if x.Row != y.Row {
			return x.Row < y.Row
		}
		return x.Seat < y.Seat
	})
	return order
}

func (s *ReservationService) announce(kind string, res *model.Reservation) {
	if s.publisher == nil {
		return
	}
	ev := queue.ReservationEvent{
		Type:          kind,
		ReservationID: res.ID,
		UserID:        res.UserID,
		Seats:         make([]queue.SeatRef, len(res.Tickets)),
		OccurredAt:    s.now().Format(time.RFC3339),
	}
	for i, t := range res.Tickets {
		ev.Seats[i] = queue.SeatRef{ShowSessionID: t.ShowSessionID, Row: t.Row, Seat: t.Seat}
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// the publisher logs its own failures
		_ = s.publisher.Publish(ctx, ev)
	}()
}

func seatError(i int, field, reason string, spec model.TicketSpec) *TicketError {
	return &TicketError{Index: i, Field: field, Reason: reason, ShowSession: spec.ShowSessionID, Row: spec.Row, Seat: spec.Seat}
}
