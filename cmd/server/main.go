package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "rsedu/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"rsedu/internal/auth"
	"rsedu/internal/cache"
	"rsedu/internal/config"
	"rsedu/internal/db"
	"rsedu/internal/handler"
	"rsedu/internal/logger"
	"rsedu/internal/model"
	"rsedu/internal/repository"
	"rsedu/internal/router"
	"rsedu/internal/service"
)

const (
	appName        = "rsedu-backend"
	appVersion     = "0.1.0"
	shutdownPeriod = 10 * time.Second
)

// @title rsEdu API
// @version 0.1.0
// @description School management API: user accounts.
// @host localhost:3000
// @BasePath /
// @schemes http
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment, cfg.LogLevel, appName, appVersion)
	slog.SetDefault(log)

	log.Info("starting rsEdu backend", slog.String("port", cfg.ServerPort), slog.String("db_driver", cfg.DBDriver))

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseURL, db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Error("database init", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("database connection established")

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if cacheClient.Enabled() {
		if err := cacheClient.Ping(context.Background()); err != nil {
			log.Warn("redis unreachable, user lookups will hit the database", slog.String("error", err.Error()))
		}
	}
	defer cacheClient.Close()

	if err := migrate(gormDB, cacheClient, cfg.ResetDB, log); err != nil {
		log.Error("auto-migrate", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hasher := auth.NewArgon2Hasher(auth.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})

	userRepo := repository.NewUserRepository(gormDB, hasher)
	userService := service.NewUserService(userRepo, cacheClient, cfg.UserCacheTTL, log)

	userHandler := handler.NewUserHandler(userService, log)
	healthHandler := handler.NewHealthHandler("rsEdu API", appVersion, "School Management System API",
		func(ctx context.Context) error { return db.Ping(ctx, gormDB) })

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.Register(e, cfg, log, userHandler, healthHandler)

	log.Info("swagger documentation available", slog.String("url", swaggerURL(cfg)))

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server start", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("server shutdown", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// migrate creates the users table. With reset set the table is dropped first
// and every cached user is flushed so no entry outlives its row.
func migrate(gormDB *gorm.DB, cacheClient *cache.Client, reset bool, log *slog.Logger) error {
	if reset {
		log.Warn("RESET_DB=true detected, dropping users table")
		if err := gormDB.Migrator().DropTable(&model.User{}); err != nil {
			log.Warn("failed to drop table (may not exist)", slog.String("error", err.Error()))
		}
		n, err := service.ResetUserCache(context.Background(), cacheClient)
		if err != nil {
			log.Warn("failed to flush user cache", slog.String("error", err.Error()))
		} else {
			log.Info("user cache flushed", slog.Int("keys", n))
		}
	}
	return gormDB.AutoMigrate(&model.User{})
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
