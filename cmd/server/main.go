package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/config"
	"gcdl-backend/internal/database"
	"gcdl-backend/internal/notify"
	"gcdl-backend/internal/observability"
	"gcdl-backend/internal/rbac"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logger configuration")
	}
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, log, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.WithError(err).Fatal("tracing setup failed")
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database setup failed")
	}

	hub := notify.NewHub(log, 32)
	var notifier notify.Broadcaster = hub
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis setup failed")
		}
		defer client.Close()
		bridge := notify.NewRedisBridge(client, notify.DefaultChannel, hub, log)
		go func() {
			if err := bridge.Run(ctx, nil); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("redis relay stopped")
			}
		}()
		notifier = bridge
	}

	d := &deps{
		cfg:      cfg,
		log:      log,
		db:       db,
		table:    rbac.MustDefault(),
		tokens:   auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		hub:      hub,
		notifier: notifier,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.ErrorHandler(log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(observability.RequestLogger(log))

	registerRoutes(app, d)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		hub.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("http shutdown")
		}
	}()

	log.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.WithError(err).Error("server stopped")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.WithError(err).Warn("trace flush failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
