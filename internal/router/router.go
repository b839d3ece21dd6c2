// Package router wires the HTTP endpoints to their handlers and
// middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learning-platform/internal/config"
	"github.com/learnhub/learning-platform/internal/handler"
	"github.com/learnhub/learning-platform/internal/middleware"
)

// RegisterRoutes registers the public health check.
func RegisterRoutes(e *echo.Echo, env string) {
	e.GET("/api/health", handler.Health(env))
}

// RegisterAuth registers the auth endpoints under /api/auth.  The whole
// group sits behind the per-IP edge limiter; the session endpoints
// additionally require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rlCfg config.EdgeRateLimitConfig, rdb *redis.Client, jwtSecret string) {
	g := e.Group("/api/auth")
	g.Use(middleware.IPRateLimit(rlCfg, rdb))

	g.POST("/otp/request", a.RequestOtp)
	g.POST("/otp/verify", a.VerifyOtp)
	g.POST("/token/refresh", a.RefreshToken)
	// Logout needs no access token; an expired session must still be able
	// to clear its cookie.
	g.POST("/logout", a.Logout)

	auth := g.Group("", middleware.RequireAuth(jwtSecret))
	auth.GET("/session", a.Session)
	auth.GET("/sessions", a.Sessions)
	auth.DELETE("/sessions/:familyId", a.RevokeSession)
	auth.DELETE("/sessions", a.RevokeAllSessions)
}

// RegisterContent registers the bearer-gated catalog endpoints under
// /api/content, wrapped by the Redis response cache.
func RegisterContent(e *echo.Echo, h *handler.ContentHandler, cacheCfg config.CacheConfig, rdb *redis.Client, jwtSecret string) {
	g := e.Group("/api/content", middleware.RequireAuth(jwtSecret), middleware.ResponseCache(cacheCfg, rdb))

	g.GET("/courses", h.Courses)
	g.GET("/courses/:id", h.CourseByID)
	g.GET("/series", h.AllSeries)
	g.GET("/series/:id", h.SeriesByID)
	g.GET("/series/:seriesId/episodes/:episodeId", h.EpisodeByID)
}

// RegisterInterests registers the interest endpoints.  The catalog list
// is public so onboarding can render before login.
func RegisterInterests(e *echo.Echo, h *handler.InterestHandler, jwtSecret string) {
	e.GET("/api/interests", h.All)

	auth := e.Group("/api/interests", middleware.RequireAuth(jwtSecret))
	auth.GET("/user", h.ForUser)
	auth.POST("/user", h.Save)
}
