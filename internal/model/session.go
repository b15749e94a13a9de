package model

import "time"

// ShowSession is one screening of a show in a dome.
type ShowSession struct {
	ID              uint64    `json:"id"`
	AstronomyShowID uint64    `json:"astronomy_show"`
	DomeID          uint64    `json:"planetarium_dome"`
	ShowTime        time.Time `json:"show_time"`
}

// ShowSessionDetail is a session joined with its show, its dome and the
// number of tickets already sold.
type ShowSessionDetail struct {
	ShowSession
	ShowTitle   string
	DomeName    string
	DomeRows    int
	DomeSeats   int
	TicketsSold int
}

func (s ShowSessionDetail) Dome() PlanetariumDome {
	return PlanetariumDome{ID: s.DomeID, Name: s.DomeName, Rows: s.DomeRows, SeatsInRow: s.DomeSeats}
}

// TicketsAvailable never goes below zero, even if a dome shrank after
// tickets were sold.
func (s ShowSessionDetail) TicketsAvailable() int {
	if n := s.Dome().Capacity() - s.TicketsSold; n > 0 {
		return n
	}
	return 0
}
