package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/queue"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/testutil"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type fixture struct {
	db      *sql.DB
	svc     *ReservationService
	pub     *mockPublisher
	user    uint64
	other   uint64
	session uint64
}

func newFixture(t *testing.T) fixture {
	db := testutil.NewDB(t)
	tickets := repository.NewTicketRepo(db)
	pub := &mockPublisher{}
	svc := NewReservationService(
		database.Transactor{DB: db},
		repository.NewSessionRepo(db),
		tickets,
		repository.NewReservationRepo(db, tickets),
		pub,
		logger.Nop(),
	)
	show := testutil.CreateShow(t, db, "Moon")
	dome := testutil.CreateDome(t, db, "Main", 3, 4)
	return fixture{
		db:      db,
		svc:     svc,
		pub:     pub,
		user:    testutil.CreateUser(t, db, "alice@example.com", false),
		other:   testutil.CreateUser(t, db, "bob@example.com", false),
		session: testutil.CreateSession(t, db, show, dome, testutil.Day(1)),
	}
}

func (f fixture) spec(row, seat int) model.TicketSpec {
	return model.TicketSpec{ShowSessionID: f.session, Row: row, Seat: seat}
}

func TestCreateBooksAllTickets(t *testing.T) {
	f := newFixture(t)
	f.pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev queue.ReservationEvent) bool {
		return ev.Type == queue.EventReservationCreated && ev.UserID == f.user && len(ev.Seats) == 3
	})).Return(nil).Once()

	res, err := f.svc.Create(context.Background(), f.user, []model.TicketSpec{f.spec(1, 1), f.spec(1, 2), f.spec(3, 4)})
	require.NoError(t, err)
	f.svc.Wait()

	assert.NotZero(t, res.ID)
	assert.Equal(t, f.user, res.UserID)
	require.Len(t, res.Tickets, 3)
	for _, tk := range res.Tickets {
		assert.Equal(t, res.ID, tk.ReservationID)
	}
	assert.Equal(t, 1, testutil.Count(t, f.db, "reservations"))
	assert.Equal(t, 3, testutil.Count(t, f.db, "tickets"))
	f.pub.AssertExpectations(t)
}

func TestCreateRejectsDuplicateInBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.user, []model.TicketSpec{f.spec(1, 1), f.spec(2, 2), f.spec(1, 1)})
	var te *TicketError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 2, te.Index)
	assert.Empty(t, te.Field)
	assert.Equal(t, 0, testutil.Count(t, f.db, "reservations"))
	assert.Equal(t, 0, testutil.Count(t, f.db, "tickets"))
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCreateRejectsSeatTakenByEarlierReservation(t *testing.T) {
	f := newFixture(t)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := f.svc.Create(context.Background(), f.other, []model.TicketSpec{f.spec(1, 1)})
	require.NoError(t, err, "a failed publish never fails the booking")

	_, err = f.svc.Create(context.Background(), f.user, []model.TicketSpec{f.spec(2, 1), f.spec(1, 1)})
	var te *TicketError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Index)
	assert.Equal(t, "seat already taken", te.Reason)
	f.svc.Wait()

	assert.Equal(t, 1, testutil.Count(t, f.db, "reservations"))
	assert.Equal(t, 1, testutil.Count(t, f.db, "tickets"))
}

func TestCreateValidatesSessionAndBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name  string
		spec  model.TicketSpec
		field string
	}{
		{"missing session", model.TicketSpec{Row: 1, Seat: 1}, "show_session"},
		{"unknown session", model.TicketSpec{ShowSessionID: 999, Row: 1, Seat: 1}, "show_session"},
		{"row too high", f.spec(4, 1), "row"},
		{"row zero", f.spec(0, 1), "row"},
		{"seat too high", f.spec(1, 5), "seat"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.user, []model.TicketSpec{f.spec(1, 1), tc.spec})
			var te *TicketError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, 1, te.Index)
			assert.Equal(t, tc.field, te.Field)
		})
	}
	assert.Equal(t, 0, testutil.Count(t, f.db, "tickets"))
}

func TestCreateEmptyListWritesNothing(t *testing.T) {
	tx := &countingTx{}
	svc := NewReservationService(tx, nopLayouts{}, nopTickets{}, nopReservations{}, nil, nil)
	_, err := svc.Create(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNoTickets)
	_, err = svc.Replace(context.Background(), 1, 1, []model.TicketSpec{})
	assert.ErrorIs(t, err, ErrNoTickets)
	assert.Zero(t, tx.calls)
}

func TestReplaceKeepsOwnSeatsAvailable(t *testing.T) {
	f := newFixture(t)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.user, []model.TicketSpec{f.spec(1, 1), f.spec(1, 2)})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.other, []model.TicketSpec{f.spec(2, 2)})
	require.NoError(t, err)

	updated, err := f.svc.Replace(ctx, f.user, res.ID, []model.TicketSpec{f.spec(1, 2), f.spec(1, 3)})
	require.NoError(t, err)
	assert.Len(t, updated.Tickets, 2)
	assert.Equal(t, 3, testutil.Count(t, f.db, "tickets"))

	_, err = f.svc.Replace(ctx, f.user, res.ID, []model.TicketSpec{f.spec(2, 2)})
	var te *TicketError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, testutil.Count(t, f.db, "tickets"), "failed replace keeps the old tickets")

	_, err = f.svc.Replace(ctx, f.other, res.ID, []model.TicketSpec{f.spec(3, 3)})
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
	f.svc.Wait()
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	res, err := f.svc.Create(ctx, f.user, []model.TicketSpec{f.spec(1, 1)})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Cancel(ctx, f.other, res.ID), repository.ErrReservationNotFound)
	require.NoError(t, f.svc.Cancel(ctx, f.user, res.ID))
	f.svc.Wait()
	assert.Equal(t, 0, testutil.Count(t, f.db, "tickets"))
	f.pub.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev queue.ReservationEvent) bool {
		return ev.Type == queue.EventReservationCancelled && ev.ReservationID == res.ID && len(ev.Seats) == 1
	}))
}

func TestCheckTicket(t *testing.T) {
	f := newFixture(t)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	res, err := f.svc.Create(ctx, f.user, []model.TicketSpec{f.spec(1, 1)})
	require.NoError(t, err)
	f.svc.Wait()
	own := res.Tickets[0]

	require.NoError(t, f.svc.CheckTicket(ctx, own, own.ID))

	var te *TicketError
	require.ErrorAs(t, f.svc.CheckTicket(ctx, model.Ticket{ShowSessionID: f.session, Row: 1, Seat: 1}, 0), &te)
	assert.Equal(t, -1, te.Index)
	require.ErrorAs(t, f.svc.CheckTicket(ctx, model.Ticket{ShowSessionID: f.session, Row: 9, Seat: 1}, 0), &te)
	assert.Equal(t, "row", te.Field)
}

// blindTickets hides existing seats from the pre-check so only the unique
// index stands between two bookings of the same seat.
type blindTickets struct {
	*repository.TicketRepo
	created []model.TicketSpec
}

func (b *blindTickets) SeatTaken(context.Context, uint64, int, int, uint64, uint64) (bool, error) {
	return false, nil
}

func (b *blindTickets) Create(ctx context.Context, t *model.Ticket) error {
	b.created = append(b.created, model.TicketSpec{ShowSessionID: t.ShowSessionID, Row: t.Row, Seat: t.Seat})
	return b.TicketRepo.Create(ctx, t)
}

func newBlindService(f fixture) (*ReservationService, *blindTickets) {
	tickets := &blindTickets{TicketRepo: repository.NewTicketRepo(f.db)}
	svc := NewReservationService(
		database.Transactor{DB: f.db},
		repository.NewSessionRepo(f.db),
		tickets,
		repository.NewReservationRepo(f.db, tickets.TicketRepo),
		nil,
		logger.Nop(),
	)
	return svc, tickets
}

func TestUniqueIndexRejectsSeatMissedByCheck(t *testing.T) {
	f := newFixture(t)
	testutil.CreateReservation(t, f.db, f.other, f.session, [2]int{2, 2})
	svc, _ := newBlindService(f)

	_, err := svc.Create(context.Background(), f.user, []model.TicketSpec{f.spec(1, 1), f.spec(2, 2)})
	var te *TicketError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Index)
	assert.Equal(t, "seat already taken", te.Reason)
	assert.Equal(t, 1, testutil.Count(t, f.db, "reservations"), "the new reservation rolls back")
	assert.Equal(t, 1, testutil.Count(t, f.db, "tickets"))
}

func TestTicketsInsertInSeatOrder(t *testing.T) {
	f := newFixture(t)
	svc, tickets := newBlindService(f)

	res, err := svc.Create(context.Background(), f.user, []model.TicketSpec{f.spec(2, 1), f.spec(1, 3), f.spec(1, 2)})
	require.NoError(t, err)

	assert.Equal(t, []model.TicketSpec{f.spec(1, 2), f.spec(1, 3), f.spec(2, 1)}, tickets.created)
	require.Len(t, res.Tickets, 3)
	assert.Equal(t, 2, res.Tickets[0].Row, "response keeps the request order")
	assert.Equal(t, 3, res.Tickets[1].Seat)
	assert.Equal(t, 2, res.Tickets[2].Seat)
}

func TestLateConflictReportsRequestIndex(t *testing.T) {
	f := newFixture(t)
	testutil.CreateReservation(t, f.db, f.other, f.session, [2]int{1, 1})
	svc, _ := newBlindService(f)

	_, err := svc.Create(context.Background(), f.user, []model.TicketSpec{f.spec(3, 3), f.spec(1, 1)})
	var te *TicketError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Index)
	assert.Equal(t, 1, testutil.Count(t, f.db, "tickets"))
}

type countingTx struct{ calls int }

func (c *countingTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.calls++
	return fn(ctx)
}

type nopLayouts struct{}

func (nopLayouts) Layout(context.Context, uint64) (model.PlanetariumDome, error) {
	return model.PlanetariumDome{}, nil
}

type nopTickets struct{}

func (nopTickets) Create(context.Context, *model.Ticket) error { return nil }
func (nopTickets) SeatTaken(context.Context, uint64, int, int, uint64, uint64) (bool, error) {
	return false, nil
}
func (nopTickets) DeleteByReservation(context.Context, uint64) error { return nil }

type nopReservations struct{}

func (nopReservations) Create(context.Context, *model.Reservation) error { return nil }
func (nopReservations) GetForUser(context.Context, uint64, uint64) (*model.Reservation, error) {
	return nil, repository.ErrReservationNotFound
}
func (nopReservations) DeleteForUser(context.Context, uint64, uint64) error { return nil }
