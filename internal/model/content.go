package model

import "time"

// Course mirrors the 'courses' table: a standalone video lesson.
type Course struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	VideoURL    string    `json:"videoUrl"`
	Category    string    `json:"category"`
	Duration    int       `json:"duration"` // seconds
	CreatedAt   time.Time `json:"createdAt"`
}

// Series mirrors the 'series' table.  Episodes is populated by the
// repository ordered by position ascending.
type Series struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	Episodes    []Episode `json:"episodes,omitempty"`
}

// SeriesSummary is the trimmed series shape embedded in episode responses.
type SeriesSummary struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Episode mirrors the 'episodes' table.
type Episode struct {
	ID       uint64         `json:"id"`
	SeriesID uint64         `json:"seriesId"`
	Title    string         `json:"title"`
	Position int            `json:"order"`
	VideoURL string         `json:"videoUrl"`
	Duration int            `json:"duration"` // seconds
	Series   *SeriesSummary `json:"series,omitempty"`
}
