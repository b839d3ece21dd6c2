package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/learning-platform/internal/repository"
)

// ContentHandler serves the course and series catalog.
type ContentHandler struct {
	Content *repository.ContentRepo
}

func NewContentHandler(content *repository.ContentRepo) *ContentHandler {
	return &ContentHandler{Content: content}
}

// Courses handles GET /api/content/courses.
func (h *ContentHandler) Courses(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	courses, err := h.Content.Courses(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch courses"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": courses})
}

// CourseByID handles GET /api/content/courses/:id.
func (h *ContentHandler) CourseByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Course not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Content.CourseByID(ctx, id)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Course not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch course"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": course})
}

// AllSeries handles GET /api/content/series.  Each series carries its
// episodes ordered by position.
func (h *ContentHandler) AllSeries(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	series, err := h.Content.AllSeries(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch series"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": series})
}

// SeriesByID handles GET /api/content/series/:id.
func (h *ContentHandler) SeriesByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Series not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	series, err := h.Content.SeriesByID(ctx, id)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Series not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch series"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": series})
}

// EpisodeByID handles GET /api/content/series/:seriesId/episodes/:episodeId.
// The response embeds a summary of the owning series.
func (h *ContentHandler) EpisodeByID(c echo.Context) error {
	seriesID, err1 := strconv.ParseUint(c.Param("seriesId"), 10, 64)
	episodeID, err2 := strconv.ParseUint(c.Param("episodeId"), 10, 64)
	if err1 != nil || err2 != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Episode not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	episode, err := h.Content.EpisodeByID(ctx, seriesID, episodeID)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Episode not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch episode"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": episode})
}
