package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsedu/internal/cache"
	"rsedu/internal/dto"
	"rsedu/internal/errors"
	"rsedu/internal/repository"
)

// DefaultUserCacheTTL is used when no positive TTL is configured.
const DefaultUserCacheTTL = 5 * time.Minute

// UserService exposes domain operations.
type UserService interface {
	ListUsers(ctx context.Context) (*dto.UsersListResponse, error)
	// GetUser returns errors.ErrUserNotFound when the id is unknown.
	GetUser(ctx context.Context, id uint) (*dto.UserResponse, error)
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	// DeleteUser reports whether a user was removed.
	DeleteUser(ctx context.Context, id uint) (bool, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
	ttl   time.Duration
	log   *slog.Logger
}

// NewUserService builds a UserService with repository and cache. cache may be nil.
func NewUserService(repo repository.UserRepository, cache *cache.Client, ttl time.Duration, log *slog.Logger) UserService {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &userService{repo: repo, cache: cache, ttl: ttl, log: log}
}

// userKeyPattern matches every entry and version key this service writes.
const userKeyPattern = "user:*"

func cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func versionKey(id uint) string {
	return fmt.Sprintf("user:%d:version", id)
}

// ResetUserCache drops every cached user. Call it after the users table is
// recreated so no entry outlives its row.
func ResetUserCache(ctx context.Context, c *cache.Client) (int, error) {
	return c.DeletePattern(ctx, userKeyPattern)
}

func (s *userService) ListUsers(ctx context.Context) (*dto.UsersListResponse, error) {
	return s.repo.List(ctx)
}

func (s *userService) GetUser(ctx context.Context, id uint) (*dto.UserResponse, error) {
	var cached dto.UserResponse
	if s.cache.GetJSON(ctx, cacheKey(id), &cached) {
		return &cached, nil
	}

	// read before the lookup so a delete that lands in between voids the write-back
	version, cacheable := s.cache.Version(ctx, versionKey(id))

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.ErrUserNotFound
	}

	if cacheable {
		_ = s.cache.SetJSONIfVersion(ctx, cacheKey(id), versionKey(id), version, user, s.ttl)
	}
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	user, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user created", slog.Uint64("user_id", uint64(user.ID)), slog.String("email", user.Email))
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uint) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	// drop any stale entry even when the row was already gone
	_ = s.cache.Invalidate(ctx, cacheKey(id), versionKey(id))
	if deleted {
		s.log.InfoContext(ctx, "user deleted", slog.Uint64("user_id", uint64(id)))
	}
	return deleted, nil
}
