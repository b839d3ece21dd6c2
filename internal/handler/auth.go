// Package handler contains the HTTP handlers for the auth, catalog,
// interest and health endpoints.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/learning-platform/internal/config"
	"github.com/learnhub/learning-platform/internal/middleware"
	"github.com/learnhub/learning-platform/internal/model"
	"github.com/learnhub/learning-platform/internal/queue"
	"github.com/learnhub/learning-platform/internal/service"
	"github.com/learnhub/learning-platform/internal/utils"
)

const refreshCookieName = "refreshToken"

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpRe   = regexp.MustCompile(`^\d{6}$`)
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Otps   *service.OtpService
	Tokens *service.TokenService
	Users  service.UserStore
	Audit  service.AuditStore
}

func NewAuthHandler(cfg config.Config, o *service.OtpService, t *service.TokenService, u service.UserStore, a service.AuditStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Otps: o, Tokens: t, Users: u, Audit: a}
}

// ----- DTOs -----

type otpRequestReq struct {
	Email string `json:"email"`
}

type otpVerifyReq struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

// RequestOtp handles POST /api/auth/otp/request.
func (h *AuthHandler) RequestOtp(c echo.Context) error {
	var req otpRequestReq
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "Email is required",
			"code":    "MISSING_EMAIL",
		})
	}
	if !emailRe.MatchString(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "Please enter a valid email address",
			"code":    "INVALID_EMAIL",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ip, ua := clientMeta(c)
	result, err := h.Otps.RequestOtp(ctx, req.Email, ip, ua)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Failed to process OTP request",
			"code":    "INTERNAL_ERROR",
		})
	}

	if !result.Success {
		status := http.StatusBadRequest
		if result.ErrorCode == service.ErrCodeRateLimited {
			status = http.StatusTooManyRequests
		}
		data := echo.Map{}
		if result.RetryAfter != nil {
			data["retryAfter"] = result.RetryAfter.Format(time.RFC3339)
		}
		if result.WaitSeconds > 0 {
			data["waitSeconds"] = result.WaitSeconds
		}
		if !result.ResendAvailableAt.IsZero() {
			data["resendAvailableAt"] = result.ResendAvailableAt.Format(time.RFC3339)
		}
		return c.JSON(status, echo.Map{
			"success": false,
			"error":   result.Message,
			"code":    result.ErrorCode,
			"data":    data,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": result.Message,
		"data": echo.Map{
			"email":             normalizedEmail(req.Email),
			"expiresAt":         result.ExpiresAt.Format(time.RFC3339),
			"resendAvailableAt": result.ResendAvailableAt.Format(time.RFC3339),
			"remainingRequests": result.RemainingRequests,
		},
	})
}

// VerifyOtp handles POST /api/auth/otp/verify: on success it issues the
// token pair, sets the refresh cookie and emits a login/signup event.
func (h *AuthHandler) VerifyOtp(c echo.Context) error {
	var req otpVerifyReq
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Otp == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "Email and OTP are required",
			"code":    "MISSING_FIELDS",
		})
	}
	// Format check happens before any storage access so malformed input
	// never consumes a verification attempt.
	if !otpRe.MatchString(req.Otp) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "OTP must be a 6-digit code",
			"code":    "INVALID_OTP_FORMAT",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ip, ua := clientMeta(c)
	result, err := h.Otps.VerifyOtp(ctx, req.Email, req.Otp, ip, ua)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Failed to verify OTP",
			"code":    "INTERNAL_ERROR",
		})
	}
	if !result.Success {
		data := echo.Map{}
		if result.AttemptsRemaining != nil {
			data["attemptsRemaining"] = *result.AttemptsRemaining
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"error":   result.Message,
			"code":    result.ErrorCode,
			"data":    data,
		})
	}

	pair, err := h.Tokens.CreatePair(ctx, result.User, service.DeviceInfo{UserAgent: ua, IPAddress: ip})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Failed to verify OTP",
			"code":    "INTERNAL_ERROR",
		})
	}
	h.setRefreshCookie(c, pair.RefreshToken)

	action := "LOGIN_SUCCESS"
	if result.IsNewUser {
		action = "SIGNUP_SUCCESS"
	}
	h.publishEvent(action, result.User.ID, result.User.Email, ua, ip)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": result.Message,
		"data": echo.Map{
			"user":        result.User,
			"accessToken": pair.AccessToken,
			"isNewUser":   result.IsNewUser,
		},
	})
}

// RefreshToken handles POST /api/auth/token/refresh.  The refresh token
// travels only in the HttpOnly cookie; a rejected token clears it.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	raw := h.refreshCookie(c)
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"error":   "Refresh token required",
			"code":    "NO_REFRESH_TOKEN",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ip, ua := clientMeta(c)
	pair, err := h.Tokens.Rotate(ctx, raw, service.DeviceInfo{UserAgent: ua, IPAddress: ip})
	if err == service.ErrInvalidRefresh {
		h.clearRefreshCookie(c)
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"error":   "Invalid or expired refresh token",
			"code":    "INVALID_REFRESH_TOKEN",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Failed to refresh token",
			"code":    "INTERNAL_ERROR",
		})
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"accessToken": pair.AccessToken},
	})
}

// Logout handles POST /api/auth/logout.  It needs no access token, always
// clears the cookie and always returns 200.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ip, ua := clientMeta(c)
	if raw := h.refreshCookie(c); raw != "" {
		if tok, err := h.Tokens.FindByRawToken(ctx, raw); err == nil {
			if _, err := h.Tokens.RevokeByRawToken(ctx, raw); err == nil {
				uid := tok.UserID
				_ = h.Audit.Insert(ctx, model.AuditLog{
					UserID:    &uid,
					Action:    model.AuditLogout,
					IPAddress: ip,
					UserAgent: ua,
				})
				h.publishEvent("LOGOUT", tok.UserID, "", ua, ip)
			}
		}
	}

	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Session handles GET /api/auth/session (behind RequireAuth).
func (h *AuthHandler) Session(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success":       false,
			"authenticated": false,
			"error":         "Not authenticated",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success":       false,
			"authenticated": false,
			"error":         "User not found",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"authenticated": true,
		"data":          echo.Map{"user": user},
	})
}

// Sessions handles GET /api/auth/sessions, listing active token families
// for the caller and flagging the one behind the presented cookie.
func (h *AuthHandler) Sessions(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Not authenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Tokens.Sessions(ctx, userID, h.currentFamilyID(ctx, c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Failed to get sessions",
			"code":    "INTERNAL_ERROR",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"sessions": sessions},
	})
}

// RevokeSession handles DELETE /api/auth/sessions/:familyId.  404 when
// the family does not exist or belongs to someone else.
func (h *AuthHandler) RevokeSession(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Not authenticated"})
	}
	familyID := c.Param("familyId")
	if familyID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Session ID required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	revoked, err := h.Tokens.RevokeSession(ctx, userID, familyID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Failed to revoke session",
			"code":    "INTERNAL_ERROR",
		})
	}
	if !revoked {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Session not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Session revoked successfully"})
}

// RevokeAllSessions handles DELETE /api/auth/sessions?keepCurrent=true.
func (h *AuthHandler) RevokeAllSessions(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Not authenticated"})
	}
	keepCurrent := c.QueryParam("keepCurrent") == "true"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if keepCurrent {
		if familyID := h.currentFamilyID(ctx, c); familyID != "" {
			count, err := h.Tokens.RevokeAllExceptFamily(ctx, userID, familyID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"success": false,
					"error":   "Failed to revoke sessions",
					"code":    "INTERNAL_ERROR",
				})
			}
			return c.JSON(http.StatusOK, echo.Map{
				"success": true,
				"message": revokedMessage(count),
				"data":    echo.Map{"revokedCount": count},
			})
		}
	}

	count, err := h.Tokens.RevokeAllUserTokens(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Failed to revoke sessions",
			"code":    "INTERNAL_ERROR",
		})
	}
	if !keepCurrent {
		h.clearRefreshCookie(c)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": revokedMessage(count),
		"data":    echo.Map{"revokedCount": count},
	})
}

// ----- helpers -----

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/auth",
		MaxAge:   h.Cfg.RefreshTTLDays * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) refreshCookie(c echo.Context) string {
	ck, err := c.Cookie(refreshCookieName)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}

// currentFamilyID resolves the cookie-presented refresh token to its
// family; empty when no valid cookie is present.
func (h *AuthHandler) currentFamilyID(ctx context.Context, c echo.Context) string {
	raw := h.refreshCookie(c)
	if raw == "" {
		return ""
	}
	tok, err := h.Tokens.FindByRawToken(ctx, raw)
	if err != nil {
		return ""
	}
	return tok.FamilyID
}

func (h *AuthHandler) publishEvent(action string, userID uint64, email, userAgent, ip string) {
	ev := queue.AuthEvent{
		Action:     action,
		UserID:     userID,
		Email:      email,
		DeviceName: utils.DeviceName(userAgent),
		IPAddress:  ip,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	// Fire and forget; delivery problems must never fail the request.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.PublishAuthEvent(ctx, ev)
	}()
}

func clientMeta(c echo.Context) (ip, userAgent string) {
	ip = utils.ClientIP(c.RealIP(), c.Request().Header.Get("X-Forwarded-For"))
	return ip, c.Request().UserAgent()
}

func revokedMessage(count int64) string {
	return fmt.Sprintf("%d session(s) revoked", count)
}

func normalizedEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
