package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"rsedu/internal/auth"
	"rsedu/internal/config"
	"rsedu/internal/db"
	"rsedu/internal/dto"
	"rsedu/internal/logger"
	"rsedu/internal/model"
	"rsedu/internal/repository"
	"rsedu/internal/service"
	"rsedu/internal/validation"
)

// SeedResult summarises a seeding run.
type SeedResult struct {
	Created int
	Invalid int
	Failed  int
}

func main() {
	source := flag.String("source", "seed/users.json", "path or http(s) URL of a JSON array of users to create")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.Environment, cfg.LogLevel, "rsedu-seed", "0.1.0")

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseURL, db.Options{})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("loading seed users", slog.String("source", *source))
	users, err := loadSeedUsers(*source)
	if err != nil {
		log.Error("failed to load seed users", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hasher := auth.NewArgon2Hasher(auth.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})
	svc := service.NewUserService(repository.NewUserRepository(gormDB, hasher), nil, 0, log)

	res := seedUsers(context.Background(), svc, validation.New(), users, log)
	log.Info("seed completed",
		slog.Int("created", res.Created),
		slog.Int("invalid", res.Invalid),
		slog.Int("failed", res.Failed),
	)
	if res.Failed > 0 {
		os.Exit(1)
	}
}

// loadSeedUsers reads a JSON array of CreateUserRequest from a file or URL.
func loadSeedUsers(source string) ([]dto.CreateUserRequest, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = fetch(source)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, err
	}

	var users []dto.CreateUserRequest
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return users, nil
}

func fetch(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// seedUsers validates and creates each user. Invalid entries are skipped and
// storage failures are counted; neither stops the run.
func seedUsers(ctx context.Context, svc service.UserService, v *validation.Validator, users []dto.CreateUserRequest, log *slog.Logger) SeedResult {
	var res SeedResult
	for i, u := range users {
		if err := v.Validate(&u); err != nil {
			log.Warn("skipping invalid seed user", slog.Int("index", i), slog.String("reason", err.Error()))
			res.Invalid++
			continue
		}

		created, err := svc.CreateUser(ctx, u)
		if err != nil {
			log.Error("failed to create seed user", slog.Int("index", i), slog.String("email", u.Email), slog.String("error", err.Error()))
			res.Failed++
			continue
		}
		log.Debug("seeded user", slog.Uint64("user_id", uint64(created.ID)))
		res.Created++
	}
	return res
}
