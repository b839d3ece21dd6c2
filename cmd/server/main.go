package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/learnhub/learning-platform/internal/config"
	"github.com/learnhub/learning-platform/internal/database"
	"github.com/learnhub/learning-platform/internal/handler"
	"github.com/learnhub/learning-platform/internal/queue"
	"github.com/learnhub/learning-platform/internal/repository"
	"github.com/learnhub/learning-platform/internal/router"
	"github.com/learnhub/learning-platform/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	dbCfg := database.Config{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpen,
		MaxIdleConns:    cfg.DBMaxIdle,
		ConnMaxLifetime: time.Duration(cfg.DBConnLifeMin) * time.Minute,
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(dbCfg); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable

	// Repositories.
	users := repository.NewUserRepo(db)
	otps := repository.NewOtpRepo(db)
	limits := repository.NewRateLimitRepo(db)
	tokens := repository.NewTokenRepo(db)
	audit := repository.NewAuditRepo(db)
	content := repository.NewContentRepo(db)
	interests := repository.NewInterestRepo(db)

	// Services.
	limiter := service.NewRateLimiter(limits, service.DefaultRateLimits())
	mailer := service.NewMailer(cfg)
	otpSvc := service.NewOtpService(otps, users, audit, limiter, mailer, service.OtpConfig{
		Secret:      cfg.OTPSecret,
		Expiry:      time.Duration(cfg.OTPExpiryMin) * time.Minute,
		MaxAttempts: cfg.OTPMaxAttempts,
		Cooldown:    time.Duration(cfg.OTPCooldownSec) * time.Second,
		Production:  cfg.IsProduction(),
	})
	tokenSvc := service.NewTokenService(tokens, users, service.TokenConfig{
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
		RefreshTTL:   time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
	})

	// Background workers.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleanup := service.NewCleanupService(otps, limits, tokens)
	go cleanup.Start(ctx, time.Hour)
	go func() {
		if err := queue.StartAuthEventConsumer(); err != nil {
			log.Printf("auth-consumer: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	authH := handler.NewAuthHandler(cfg, otpSvc, tokenSvc, users, audit)
	contentH := handler.NewContentHandler(content)
	interestH := handler.NewInterestHandler(interests)

	router.RegisterRoutes(e, cfg.Env)
	router.RegisterAuth(e, authH, config.LoadEdgeRateLimitConfig(), rdb, cfg.JWTSecret)
	router.RegisterContent(e, contentH, config.LoadCacheConfig(), rdb, cfg.JWTSecret)
	router.RegisterInterests(e, interestH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
