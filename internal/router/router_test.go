package router_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/planetarium-reservation/internal/config"
	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/router"
	"github.com/iliyamo/planetarium-reservation/internal/testutil"
	"github.com/iliyamo/planetarium-reservation/internal/utils"
)

const secret = "router-test-secret"

type app struct {
	t     *testing.T
	e     *echo.Echo
	db    *sql.DB
	staff string
	alice string
	bob   string
	ids   map[string]uint64
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.Config{
		Env:             "test",
		JWTSecret:       secret,
		AccessTTLMin:    5,
		RefreshTTLDays:  1,
		BcryptCost:      4,
		MediaRoot:       t.TempDir(),
		MediaURL:        "/media/",
		SessionPageSize: 10,
		DefaultPageSize: 5,
		MaxPageSize:     100,
	}
	e, booking := router.New(router.Deps{Cfg: cfg, DB: db, Log: logger.Nop()})
	t.Cleanup(booking.Wait)

	a := &app{t: t, e: e, db: db, ids: map[string]uint64{}}
	a.ids["staff"] = testutil.CreateUser(t, db, "staff@example.com", true)
	a.ids["alice"] = testutil.CreateUser(t, db, "alice@example.com", false)
	a.ids["bob"] = testutil.CreateUser(t, db, "bob@example.com", false)
	a.staff = a.token(a.ids["staff"], true)
	a.alice = a.token(a.ids["alice"], false)
	a.bob = a.token(a.ids["bob"], false)
	return a
}

func (a *app) token(uid uint64, staff bool) string {
	tok, err := utils.NewAccessToken(secret, uid, staff, 5)
	require.NoError(a.t, err)
	return tok.Token
}

func (a *app) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var r *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = strings.NewReader(string(raw))
	} else {
		r = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// session creates a show, a dome of rows x seats and one session.
func (a *app) session(rows, seats int) uint64 {
	show := testutil.CreateShow(a.t, a.db, "Black Holes")
	dome := testutil.CreateDome(a.t, a.db, "Orion", rows, seats)
	return testutil.CreateSession(a.t, a.db, show, dome, testutil.Day(2))
}

func ticketsBody(session uint64, seats ...[2]int) map[string]any {
	ts := make([]map[string]any, len(seats))
	for i, s := range seats {
		ts[i] = map[string]any{"show_session": session, "row": s[0], "seat": s[1]}
	}
	return map[string]any{"tickets": ts}
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	a := newApp(t)
	paths := []string{
		"/api/planetarium/astronomy_show/",
		"/api/planetarium/show_theme/",
		"/api/planetarium/planetarium_dome/",
		"/api/planetarium/show_session/",
		"/api/planetarium/reservation/",
		"/api/planetarium/ticket/",
		"/api/user/me/",
	}
	for _, p := range paths {
		assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, p, "", nil).Code, p)
	}
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/planetarium/reservation/", "", ticketsBody(1, [2]int{1, 1})).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/planetarium/astronomy_show/", "not-a-jwt", nil).Code)
}

func TestNonStaffCannotWriteCatalog(t *testing.T) {
	a := newApp(t)
	show := testutil.CreateShow(t, a.db, "Comets")
	writes := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/api/planetarium/astronomy_show/", map[string]any{"title": "x"}},
		{http.MethodPut, fmt.Sprintf("/api/planetarium/astronomy_show/%d/", show), map[string]any{"title": "x"}},
		{http.MethodPost, "/api/planetarium/show_theme/", map[string]any{"name": "x"}},
		{http.MethodPost, "/api/planetarium/planetarium_dome/", map[string]any{"name": "x", "rows": 1, "seats_in_row": 1}},
		{http.MethodPost, "/api/planetarium/show_session/", map[string]any{"astronomy_show": show}},
		{http.MethodPost, "/api/planetarium/ticket/", map[string]any{"row": 1}},
	}
	for _, w := range writes {
		rec := a.do(w.method, w.path, a.alice, w.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, w.method+" "+w.path)
	}
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/planetarium/astronomy_show/", a.alice, nil).Code)
}

func TestStaffCreatesSessionAndReadsItBack(t *testing.T) {
	a := newApp(t)
	show := testutil.CreateShow(t, a.db, "Saturn")
	dome := testutil.CreateDome(t, a.db, "Vega", 3, 5)

	rec := a.do(http.MethodPost, "/api/planetarium/show_session/", a.staff, map[string]any{
		"astronomy_show":   show,
		"planetarium_dome": dome,
		"show_time":        "2030-03-05T19:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &created)

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/planetarium/show_session/%d/", created.ID), a.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		AstronomyShow      uint64 `json:"astronomy_show"`
		AstronomyShowTitle string `json:"astronomy_show_title"`
		DomeCapacity       int    `json:"dome_capacity"`
		TicketsSold        int    `json:"tickets_sold"`
		TicketsAvailable   int    `json:"tickets_available"`
	}
	decode(t, rec, &got)
	assert.Equal(t, show, got.AstronomyShow)
	assert.Equal(t, "Saturn", got.AstronomyShowTitle)
	assert.Equal(t, 15, got.DomeCapacity)
	assert.Zero(t, got.TicketsSold)
	assert.Equal(t, 15, got.TicketsAvailable)
}

func TestSessionRejectsUnknownReferences(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodPost, "/api/planetarium/show_session/", a.staff, map[string]any{
		"astronomy_show":   99,
		"planetarium_dome": 98,
		"show_time":        "2030-03-05T19:00:00Z",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	decode(t, rec, &body)
	assert.Contains(t, body.Fields, "astronomy_show")
	assert.Contains(t, body.Fields, "planetarium_dome")
	assert.Zero(t, testutil.Count(t, a.db, "show_sessions"))
}

func TestSessionListFilters(t *testing.T) {
	a := newApp(t)
	s1 := testutil.CreateShow(t, a.db, "Mars")
	s2 := testutil.CreateShow(t, a.db, "Venus")
	dome := testutil.CreateDome(t, a.db, "Main", 2, 2)
	testutil.CreateSession(t, a.db, s1, dome, testutil.Day(1))
	testutil.CreateSession(t, a.db, s1, dome, testutil.Day(2))
	testutil.CreateSession(t, a.db, s2, dome, testutil.Day(2))

	var page struct {
		Count int `json:"count"`
	}
	decode(t, a.do(http.MethodGet, fmt.Sprintf("/api/planetarium/show_session/?astronomy_show=%d", s1), a.alice, nil), &page)
	assert.Equal(t, 2, page.Count)
	decode(t, a.do(http.MethodGet, "/api/planetarium/show_session/?date="+testutil.Day(2).Format("2006-01-02"), a.alice, nil), &page)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/planetarium/show_session/?date=tomorrow", a.alice, nil).Code)
}

func TestReservationBooksEveryTicketForTheCaller(t *testing.T) {
	a := newApp(t)
	session := a.session(3, 3)

	rec := a.do(http.MethodPost, "/api/planetarium/reservation/", a.alice, ticketsBody(session, [2]int{1, 1}, [2]int{1, 2}, [2]int{2, 3}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		ID      uint64 `json:"id"`
		User    uint64 `json:"user"`
		Tickets []struct {
			Reservation uint64 `json:"reservation"`
		} `json:"tickets"`
	}
	decode(t, rec, &res)
	assert.Len(t, res.Tickets, 3)
	assert.Equal(t, a.ids["alice"], res.User)
	for _, tk := range res.Tickets {
		assert.Equal(t, res.ID, tk.Reservation)
	}

	var owner uint64
	require.NoError(t, a.db.QueryRow(`SELECT user_id FROM reservations WHERE id = ?`, res.ID).Scan(&owner))
	assert.Equal(t, a.ids["alice"], owner)
	assert.Equal(t, 1, testutil.Count(t, a.db, "reservations"))
	assert.Equal(t, 3, testutil.Count(t, a.db, "tickets"))
}

func TestReservationSameSeatTwice(t *testing.T) {
	a := newApp(t)
	session := a.session(2, 2)
	body := ticketsBody(session, [2]int{1, 1})

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/planetarium/reservation/", a.alice, body).Code)
	rec := a.do(http.MethodPost, "/api/planetarium/reservation/", a.bob, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorBody
	decode(t, rec, &e)
	assert.Equal(t, "seat already taken", e.Fields["tickets[0]"])
	assert.Equal(t, 1, testutil.Count(t, a.db, "tickets"))
	assert.Equal(t, 1, testutil.Count(t, a.db, "reservations"))
}

func TestReservationDuplicateInBatchWritesNothing(t *testing.T) {
	a := newApp(t)
	session := a.session(2, 2)

	rec := a.do(http.MethodPost, "/api/planetarium/reservation/", a.alice, ticketsBody(session, [2]int{1, 1}, [2]int{1, 1}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorBody
	decode(t, rec, &e)
	assert.Contains(t, e.Fields, "tickets[1]")
	assert.Zero(t, testutil.Count(t, a.db, "tickets"))
	assert.Zero(t, testutil.Count(t, a.db, "reservations"))
}

func TestReservationValidation(t *testing.T) {
	a := newApp(t)
	session := a.session(2, 2)

	cases := map[string]struct {
		body  any
		field string
	}{
		"empty":        {map[string]any{"tickets": []any{}}, "tickets"},
		"missing":      {map[string]any{}, "tickets"},
		"row zero":     {ticketsBody(session, [2]int{0, 1}), "tickets[0].row"},
		"row too far":  {ticketsBody(session, [2]int{1, 1}, [2]int{3, 1}), "tickets[1].row"},
		"seat too far": {ticketsBody(session, [2]int{1, 9}), "tickets[0].seat"},
		"no session":   {ticketsBody(404, [2]int{1, 1}), "tickets[0].show_session"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/planetarium/reservation/", a.alice, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var e errorBody
			decode(t, rec, &e)
			assert.Contains(t, e.Fields, tc.field)
		})
	}
	rec := a.do(http.MethodPost, "/api/planetarium/reservation/", a.alice, ticketsBody(session, [2]int{0, 1}))
	var e errorBody
	decode(t, rec, &e)
	assert.Equal(t, "ensure this value is greater than or equal to 1", e.Fields["tickets[0].row"])
	assert.Zero(t, testutil.Count(t, a.db, "reservations"))
}

func TestReservationsAreScopedToTheirOwner(t *testing.T) {
	a := newApp(t)
	session := a.session(3, 3)
	mine := testutil.CreateReservation(t, a.db, a.ids["alice"], session, [2]int{1, 1})
	theirs := testutil.CreateReservation(t, a.db, a.ids["bob"], session, [2]int{2, 2})

	var page struct {
		Count   int `json:"count"`
		Results []struct {
			ID uint64 `json:"id"`
		} `json:"results"`
	}
	decode(t, a.do(http.MethodGet, "/api/planetarium/reservation/", a.alice, nil), &page)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, mine, page.Results[0].ID)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/api/planetarium/reservation/%d/", theirs), a.alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, fmt.Sprintf("/api/planetarium/reservation/%d/", theirs), a.alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPut, fmt.Sprintf("/api/planetarium/reservation/%d/", theirs), a.alice, ticketsBody(session, [2]int{3, 3})).Code)
	assert.Equal(t, 2, testutil.Count(t, a.db, "tickets"))
}

func TestReservationReplaceAndCancel(t *testing.T) {
	a := newApp(t)
	session := a.session(3, 3)
	id := testutil.CreateReservation(t, a.db, a.ids["alice"], session, [2]int{1, 1}, [2]int{1, 2})
	path := fmt.Sprintf("/api/planetarium/reservation/%d/", id)

	rec := a.do(http.MethodPut, path, a.alice, ticketsBody(session, [2]int{1, 2}, [2]int{1, 3}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, testutil.Count(t, a.db, "tickets"))

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path, a.alice, nil).Code)
	assert.Zero(t, testutil.Count(t, a.db, "tickets"))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, path, a.alice, nil).Code)
}

func TestDomeCapacity(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodPost, "/api/planetarium/planetarium_dome/", a.staff, map[string]any{"name": "Andromeda", "rows": 4, "seats_in_row": 6})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var d struct {
		ID       uint64 `json:"id"`
		Rows     int    `json:"rows"`
		Seats    int    `json:"seats_in_row"`
		Capacity int    `json:"capacity"`
	}
	decode(t, rec, &d)
	assert.Equal(t, 24, d.Capacity)

	rec = a.do(http.MethodPatch, fmt.Sprintf("/api/planetarium/planetarium_dome/%d/", d.ID), a.staff, map[string]any{"rows": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &d)
	assert.Equal(t, 5, d.Rows)
	assert.Equal(t, d.Rows*d.Seats, d.Capacity)

	rec = a.do(http.MethodPost, "/api/planetarium/planetarium_dome/", a.staff, map[string]any{"name": "Bad", "rows": 0, "seats_in_row": 3})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorBody
	decode(t, rec, &e)
	assert.Equal(t, "ensure this value is greater than or equal to 1", e.Fields["rows"])
}

func TestShowListPaginationAndFilters(t *testing.T) {
	a := newApp(t)
	var moon uint64
	for i := 0; i < 7; i++ {
		id := testutil.CreateShow(t, a.db, fmt.Sprintf("Show %d", i))
		if i == 3 {
			moon = id
		}
	}
	testutil.CreateShow(t, a.db, "Full MOON night")
	theme := testutil.CreateTheme(t, a.db, "Lunar", moon)

	var page struct {
		Count    int     `json:"count"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
		Results  []any   `json:"results"`
	}
	decode(t, a.do(http.MethodGet, "/api/planetarium/astronomy_show/", a.alice, nil), &page)
	assert.Equal(t, 8, page.Count)
	assert.Len(t, page.Results, 5)
	assert.NotNil(t, page.Next)
	assert.Nil(t, page.Previous)

	page.Next = nil
	decode(t, a.do(http.MethodGet, "/api/planetarium/astronomy_show/?page=2", a.alice, nil), &page)
	assert.Len(t, page.Results, 3)
	assert.Nil(t, page.Next)
	assert.NotNil(t, page.Previous)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/planetarium/astronomy_show/?page=3", a.alice, nil).Code)

	decode(t, a.do(http.MethodGet, "/api/planetarium/astronomy_show/?title=moon", a.alice, nil), &page)
	assert.Equal(t, 1, page.Count)
	decode(t, a.do(http.MethodGet, fmt.Sprintf("/api/planetarium/astronomy_show/?themes=%d", theme), a.alice, nil), &page)
	assert.Equal(t, 1, page.Count)
}

func TestThemeRejectsUnknownShows(t *testing.T) {
	a := newApp(t)
	show := testutil.CreateShow(t, a.db, "Nebulae")

	rec := a.do(http.MethodPost, "/api/planetarium/show_theme/", a.staff, map[string]any{"name": "Deep sky", "shows": []uint64{show, 999}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorBody
	decode(t, rec, &e)
	assert.Contains(t, e.Fields, "shows")

	rec = a.do(http.MethodPost, "/api/planetarium/show_theme", a.staff, map[string]any{"name": "Deep sky", "shows": []uint64{show}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var theme struct {
		Name  string   `json:"name"`
		Shows []uint64 `json:"shows"`
	}
	decode(t, rec, &theme)
	assert.Equal(t, []uint64{show}, theme.Shows)
}

func TestTicketWritesAndQRCode(t *testing.T) {
	a := newApp(t)
	session := a.session(2, 2)
	res := testutil.CreateReservation(t, a.db, a.ids["alice"], session, [2]int{1, 1})

	rec := a.do(http.MethodPost, "/api/planetarium/ticket/", a.staff, map[string]any{"row": 1, "seat": 1, "show_session": session, "reservation": res})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/planetarium/ticket/", a.staff, map[string]any{"row": 2, "seat": 3, "show_session": session, "reservation": res})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorBody
	decode(t, rec, &e)
	assert.Contains(t, e.Fields, "seat")

	rec = a.do(http.MethodPost, "/api/planetarium/ticket/", a.staff, map[string]any{"row": 2, "seat": 2, "show_session": session, "reservation": res})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tk struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &tk)

	qr := fmt.Sprintf("/api/planetarium/ticket/%d/qr/", tk.ID)
	rec = a.do(http.MethodGet, qr, a.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	assert.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, qr, a.bob, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, qr, a.staff, nil).Code)
}

func TestUploadShowImage(t *testing.T) {
	a := newApp(t)
	show := testutil.CreateShow(t, a.db, "Aurora")

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "poster.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/planetarium/astronomy_show/%d/upload-image/", show), &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.staff)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Image string `json:"image"`
	}
	decode(t, rec, &out)
	assert.True(t, strings.HasPrefix(out.Image, "/media/uploads/shows/"), out.Image)

	served := a.do(http.MethodGet, out.Image, "", nil)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, img.Bytes(), served.Body.Bytes())

	dome := testutil.CreateDome(t, a.db, "Main", 2, 2)
	for _, path := range []string{
		fmt.Sprintf("/api/planetarium/astronomy_show/%d/upload-image/", show),
		fmt.Sprintf("/api/planetarium/planetarium_dome/%d/upload-image/", dome),
	} {
		assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, path, a.alice, nil).Code, path)
	}
}

func TestUserRegistrationAndTokens(t *testing.T) {
	a := newApp(t)
	creds := map[string]any{"email": "Carol@Example.com", "password": "orbit-123"}

	rec := a.do(http.MethodPost, "/api/user/", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u struct {
		Email   string `json:"email"`
		IsStaff bool   `json:"is_staff"`
	}
	decode(t, rec, &u)
	assert.Equal(t, "carol@example.com", u.Email)
	assert.False(t, u.IsStaff)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/api/user/", "", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/user/token/", "", map[string]any{"email": "carol@example.com", "password": "wrong-pass"}).Code)

	rec = a.do(http.MethodPost, "/api/user/token/", "", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	decode(t, rec, &pair)

	rec = a.do(http.MethodGet, "/api/user/me/", pair.Access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &u)
	assert.Equal(t, "carol@example.com", u.Email)

	refresh := map[string]any{"refresh": pair.Refresh}
	rec = a.do(http.MethodPost, "/api/user/token/refresh/", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access")

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/api/user/token/logout/", "", refresh).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/user/token/refresh/", "", refresh).Code)
}
