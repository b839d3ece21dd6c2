// Package middleware holds the echo middleware used by the HTTP layer:
// access-token authentication, a Redis token-bucket limiter applied per
// client IP, and a Redis response cache for the catalog routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/learning-platform/internal/utils"
)

// RequireAuth validates the Bearer access token on the request and stores
// user_id and email in the echo context for downstream handlers.  Requests
// without a token get NO_TOKEN, requests with a bad one get INVALID_TOKEN.
func RequireAuth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Access token required",
					"code":  "NO_TOKEN",
				})
			}
			claims := utils.VerifyAccessToken(jwtSecret, raw)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired access token",
					"code":  "INVALID_TOKEN",
				})
			}
			c.Set("user_id", claims.UserID)
			c.Set("email", claims.Email)
			return next(c)
		}
	}
}

// OptionalAuth sets user_id and email when a valid token is present but
// lets unauthenticated requests through untouched.
func OptionalAuth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearerToken(c); raw != "" {
				if claims := utils.VerifyAccessToken(jwtSecret, raw); claims != nil {
					c.Set("user_id", claims.UserID)
					c.Set("email", claims.Email)
				}
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// UserID reads the authenticated user id set by RequireAuth.  The second
// return is false when the request was not authenticated.
func UserID(c echo.Context) (uint64, bool) {
	v, ok := c.Get("user_id").(uint64)
	return v, ok
}
