package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/learning-platform/internal/middleware"
	"github.com/learnhub/learning-platform/internal/model"
)

// InterestStore is the subset of the interest repository the handler needs.
type InterestStore interface {
	All(ctx context.Context) ([]model.Interest, error)
	CountExisting(ctx context.Context, ids []uint64) (int, error)
	ReplaceForUser(ctx context.Context, userID uint64, interestIDs []uint64) error
	ForUser(ctx context.Context, userID uint64) ([]model.UserInterest, error)
	CountForUser(ctx context.Context, userID uint64) (int, error)
}

// InterestHandler serves the interest catalog and the user's onboarding
// selection.
type InterestHandler struct {
	Interests InterestStore
}

func NewInterestHandler(interests InterestStore) *InterestHandler {
	return &InterestHandler{Interests: interests}
}

type saveInterestsReq struct {
	InterestIDs []uint64 `json:"interestIds"`
}

type userInterestResp struct {
	ID     uint64  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// All handles GET /api/interests (public).
func (h *InterestHandler) All(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	interests, err := h.Interests.All(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch interests"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": interests})
}

// Save handles POST /api/interests/user.  The selection replaces whatever
// was stored before; unknown IDs reject the whole request.
func (h *InterestHandler) Save(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"error":   "User not authenticated",
			"code":    "NOT_AUTHENTICATED",
		})
	}

	var req saveInterestsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "interestIds must be an array",
			"code":    "INVALID_INPUT",
		})
	}
	if len(req.InterestIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "At least one interest must be selected",
			"code":    "NO_INTERESTS_SELECTED",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ids := uniqueIDs(req.InterestIDs)
	existing, err := h.Interests.CountExisting(ctx, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to save interests"})
	}
	if existing != len(ids) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "One or more interest IDs are invalid",
			"code":    "INVALID_INTEREST_IDS",
		})
	}

	if err := h.Interests.ReplaceForUser(ctx, userID, ids); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to save interests"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Interests saved successfully"})
}

// ForUser handles GET /api/interests/user.  Onboarding counts as complete
// once at least one interest is stored.
func (h *InterestHandler) ForUser(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"error":   "User not authenticated",
			"code":    "NOT_AUTHENTICATED",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, err := h.Interests.CountForUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch user interests"})
	}
	if count == 0 {
		return c.JSON(http.StatusOK, echo.Map{
			"success":                true,
			"data":                   []userInterestResp{},
			"hasCompletedOnboarding": false,
		})
	}

	rows, err := h.Interests.ForUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch user interests"})
	}

	out := make([]userInterestResp, 0, len(rows))
	for _, ui := range rows {
		out = append(out, userInterestResp{ID: ui.Interest.ID, Name: ui.Interest.Name, Weight: ui.Weight})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":                true,
		"data":                   out,
		"hasCompletedOnboarding": true,
	})
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
