package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

// PageSizes are the listing page sizes. Sessions use their own default.
type PageSizes struct {
	Default int
	Session int
	Max     int
}

// pageBody is the envelope of every listing.
type pageBody struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

type pager struct {
	number int
	size   int
}

var errInvalidPage = echo.NewHTTPError(http.StatusNotFound, "invalid page")

// newPager reads ?page= and ?page_size=. page_size is capped at max and
// falls back to def when absent or not a positive integer.
func newPager(c echo.Context, def, max int) (pager, error) {
	p := pager{number: 1, size: def}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, errInvalidPage
		}
		p.number = n
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.size = n
		}
	}
	if max > 0 && p.size > max {
		p.size = max
	}
	if p.size < 1 {
		p.size = 1
	}
	return p, nil
}

func (p pager) window() repository.Page {
	return repository.Page{Limit: p.size, Offset: (p.number - 1) * p.size}
}

func (p pager) lastPage(total int) int {
	if total == 0 {
		return 1
	}
	return (total + p.size - 1) / p.size
}

// respond writes the envelope, or 404 when the page lies past the end.
func (p pager) respond(c echo.Context, total int, results any) error {
	last := p.lastPage(total)
	if p.number > last {
		return errorJSON(c, http.StatusNotFound, "invalid page")
	}
	body := pageBody{Count: total, Results: results}
	if p.number < last {
		body.Next = pageLink(c, p.number+1)
	}
	if p.number > 1 {
		body.Previous = pageLink(c, p.number-1)
	}
	return c.JSON(http.StatusOK, body)
}

func pageLink(c echo.Context, n int) *string {
	req := c.Request()
	q := req.URL.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u := url.URL{Scheme: c.Scheme(), Host: req.Host, Path: req.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}

// list runs a paginated query and writes the envelope.
func list[T any](c echo.Context, def, max int, fetch func(repository.Page) ([]T, int, error), render func(T) any) error {
	p, err := newPager(c, def, max)
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "invalid page")
	}
	items, total, err := fetch(p.window())
	if err != nil {
		return err
	}
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, render(it))
	}
	return p.respond(c, total, out)
}
