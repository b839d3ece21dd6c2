package repository

import (
	"context"
	"database/sql"

	"github.com/learnhub/learning-platform/internal/model"
)

// ContentRepo serves the read-only course/series/episode catalog.
type ContentRepo struct{ DB *sql.DB }

func NewContentRepo(db *sql.DB) *ContentRepo { return &ContentRepo{DB: db} }

// Courses returns all standalone courses, newest first.
func (r *ContentRepo) Courses(ctx context.Context) ([]model.Course, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, title, description, thumbnail, video_url, category, duration, created_at
		 FROM courses ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Thumbnail,
			&c.VideoURL, &c.Category, &c.Duration, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CourseByID fetches one course.  sql.ErrNoRows when absent.
func (r *ContentRepo) CourseByID(ctx context.Context, id uint64) (model.Course, error) {
	var c model.Course
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, title, description, thumbnail, video_url, category, duration, created_at
		 FROM courses WHERE id=? LIMIT 1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Thumbnail, &c.VideoURL,
			&c.Category, &c.Duration, &c.CreatedAt)
	return c, err
}

// AllSeries returns every series with its episodes ordered by position.
func (r *ContentRepo) AllSeries(ctx context.Context) ([]model.Series, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, title, description, thumbnail, category, created_at
		 FROM series ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Series
	index := map[uint64]int{}
	for rows.Next() {
		var s model.Series
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Thumbnail,
			&s.Category, &s.CreatedAt); err != nil {
			return nil, err
		}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	epRows, err := r.DB.QueryContext(ctx,
		`SELECT id, series_id, title, position, video_url, duration
		 FROM episodes ORDER BY series_id, position ASC`)
	if err != nil {
		return nil, err
	}
	defer epRows.Close()
	for epRows.Next() {
		var e model.Episode
		if err := epRows.Scan(&e.ID, &e.SeriesID, &e.Title, &e.Position,
			&e.VideoURL, &e.Duration); err != nil {
			return nil, err
		}
		if i, ok := index[e.SeriesID]; ok {
			out[i].Episodes = append(out[i].Episodes, e)
		}
	}
	return out, epRows.Err()
}

// SeriesByID fetches one series with its episodes.  sql.ErrNoRows when absent.
func (r *ContentRepo) SeriesByID(ctx context.Context, id uint64) (model.Series, error) {
	var s model.Series
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, title, description, thumbnail, category, created_at
		 FROM series WHERE id=? LIMIT 1`, id).
		Scan(&s.ID, &s.Title, &s.Description, &s.Thumbnail, &s.Category, &s.CreatedAt)
	if err != nil {
		return model.Series{}, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, series_id, title, position, video_url, duration
		 FROM episodes WHERE series_id=? ORDER BY position ASC`, id)
	if err != nil {
		return model.Series{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.Episode
		if err := rows.Scan(&e.ID, &e.SeriesID, &e.Title, &e.Position,
			&e.VideoURL, &e.Duration); err != nil {
			return model.Series{}, err
		}
		s.Episodes = append(s.Episodes, e)
	}
	return s, rows.Err()
}

// EpisodeByID fetches one episode scoped to its series, with the series
// summary embedded for the player page.
func (r *ContentRepo) EpisodeByID(ctx context.Context, seriesID, episodeID uint64) (model.Episode, error) {
	var (
		e model.Episode
		s model.SeriesSummary
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT e.id, e.series_id, e.title, e.position, e.video_url, e.duration,
		        s.id, s.title, s.thumbnail, s.description, s.category
		 FROM episodes e JOIN series s ON s.id = e.series_id
		 WHERE e.id=? AND e.series_id=? LIMIT 1`, episodeID, seriesID).
		Scan(&e.ID, &e.SeriesID, &e.Title, &e.Position, &e.VideoURL, &e.Duration,
			&s.ID, &s.Title, &s.Thumbnail, &s.Description, &s.Category)
	if err != nil {
		return model.Episode{}, err
	}
	e.Series = &s
	return e, nil
}
