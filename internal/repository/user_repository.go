package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"rsedu/internal/auth"
	"rsedu/internal/dto"
	"rsedu/internal/model"
)

// UserRepository defines persistence operations for user accounts.
// It is the only component that sees model.User; callers get dto.UserResponse.
type UserRepository interface {
	List(ctx context.Context) (*dto.UsersListResponse, error)
	// FindByID returns nil, nil when no user has the given id.
	FindByID(ctx context.Context, id uint) (*dto.UserResponse, error)
	Create(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	// Delete reports false, nil when no user has the given id.
	Delete(ctx context.Context, id uint) (bool, error)
}

type userRepository struct {
	db     *gorm.DB
	hasher auth.PasswordHasher
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB, hasher auth.PasswordHasher) UserRepository {
	return &userRepository{db: db, hasher: hasher}
}

// List returns every user ordered by id.
func (r *userRepository) List(ctx context.Context) (*dto.UsersListResponse, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	resp := dto.NewUsersListResponse(users)
	return &resp, nil
}

// FindByID looks up a single user.
func (r *userRepository) FindByID(ctx context.Context, id uint) (*dto.UserResponse, error) {
	user, err := r.findByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// Create hashes the password, inserts a new active user and returns the
// stored row.
func (r *userRepository) Create(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	hash, err := r.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// created_at is a column default, so read back what the store recorded
	stored, err := r.findByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("create user: row %d missing after insert", user.ID)
	}

	resp := dto.NewUserResponse(stored)
	return &resp, nil
}

// Delete removes the user with the given id if it exists.
func (r *userRepository) Delete(ctx context.Context, id uint) (bool, error) {
	user, err := r.findByID(ctx, id)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	if err := r.db.WithContext(ctx).Delete(user).Error; err != nil {
		return false, fmt.Errorf("delete user %d: %w", id, err)
	}
	return true, nil
}

func (r *userRepository) findByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}
