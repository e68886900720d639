package types

import "time"

// Genre is catalog seed data; visible to a user only through a plan
// behind an active subscription.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Movie release/popularity fields are pointers: a missing sort key
// excludes the movie from the sublist ordered by it.
type Movie struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	Popularity  *float64   `json:"popularity,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	Adult       bool       `json:"adult"`
}

// GenreDetail carries the two curated sublists for the genre page.
type GenreDetail struct {
	Genre
	Latest  []Movie `json:"latest"`
	Popular []Movie `json:"popular"`
}

// Plan is immutable catalog data created out-of-band.
type Plan struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	DurationDays int     `json:"duration_days"`
	Genres       []Genre `json:"genres,omitempty"`
}
