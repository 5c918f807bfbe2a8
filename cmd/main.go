package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/config"
	"github.com/AnthoniusHendriyanto/otp-auth-service/db"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/handler"
	repo "github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/repository/postgres"
	store "github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/repository/redis"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/service"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/logger"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/notify"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/phone"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		zlog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := db.NewRedisClient(ctx, db.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		zlog.Fatal("redis unavailable", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	var phones domain.PhoneVerifier
	if cfg.FirebaseCredentialsFile != "" {
		verifier, err := phone.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsFile, zlog)
		if err != nil {
			zlog.Fatal("firebase unavailable", zap.Error(err))
		}
		phones = verifier
	} else {
		zlog.Warn("FIREBASE_CREDENTIALS_FILE not set, phone verification fallback disabled")
	}

	mailer := notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, zlog)

	userRepo := repo.NewPostgresRepository(dbPool)
	otpRepo := repo.NewOtpRepository(dbPool)
	pending := store.NewPendingStore(redisClient, time.Duration(cfg.SessionTTLMinutes)*time.Minute)

	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.AccessExpiryMin)
	otpService := service.NewOtpService(otpRepo, mailer, phones, service.OtpConfig{
		Expiry:         time.Duration(cfg.OtpExpirySeconds) * time.Second,
		ResendInterval: time.Duration(cfg.OtpResendIntervalSeconds) * time.Second,
		RequireRecord:  cfg.OtpRequireRecord,
		Location:       cfg.Location(),
		Retention:      time.Duration(cfg.OtpRetentionHours) * time.Hour,
	}, zlog)
	go otpService.RunJanitor(ctx, time.Hour)
	userService := service.NewUserService(userRepo, pending, otpService, tokenService, mailer, zlog)
	accountService := service.NewAccountService(userRepo, mailer, zlog)

	authHandler := handler.NewAuthHandler(userService, accountService, tokenService, zlog, handler.Options{
		SessionTTL:    time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		SecureCookies: cfg.IsProduction(),
	})

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.IsProduction()})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(handler.RequestLogger(zlog))
	app.Use(encryptcookie.New(encryptcookie.Config{Key: cfg.CookieKey}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := dbPool.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "postgres unavailable"})
		}
		if err := redisClient.Ping(c.UserContext()).Err(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "redis unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handler.RegisterRoutes(app, authHandler, cfg.APIVersion)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Error("shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Error("server stopped", zap.Error(err))
	}
}
