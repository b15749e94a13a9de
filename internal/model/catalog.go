package model

// AstronomyShow is a row of `astronomy_shows`. Themes is filled by the
// repository from `show_theme_shows`.
type AstronomyShow struct {
	ID          uint64   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Themes      []uint64 `json:"themes"`
	Image       *string  `json:"image"`
}

// ShowTheme groups shows; Shows lists the linked astronomy show ids.
type ShowTheme struct {
	ID    uint64   `json:"id"`
	Name  string   `json:"name"`
	Shows []uint64 `json:"shows"`
}

// PlanetariumDome is a hall laid out as Rows x SeatsInRow seats.
type PlanetariumDome struct {
	ID         uint64  `json:"id"`
	Name       string  `json:"name"`
	Rows       int     `json:"rows"`
	SeatsInRow int     `json:"seats_in_row"`
	Image      *string `json:"image"`
}

// Capacity is Rows * SeatsInRow.
func (d PlanetariumDome) Capacity() int {
	return d.Rows * d.SeatsInRow
}

// RowInBounds reports whether the 1-based row exists in the dome.
func (d PlanetariumDome) RowInBounds(row int) bool {
	return row >= 1 && row <= d.Rows
}

// SeatInBounds reports whether the 1-based seat exists in every row.
func (d PlanetariumDome) SeatInBounds(seat int) bool {
	return seat >= 1 && seat <= d.SeatsInRow
}

// InBounds reports whether a 1-based (row, seat) exists in the dome.
func (d PlanetariumDome) InBounds(row, seat int) bool {
	return d.RowInBounds(row) && d.SeatInBounds(seat)
}
