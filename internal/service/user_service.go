package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"filemanager/internal/auth"
	"filemanager/internal/cache"
	apperrors "filemanager/internal/errors"
	"filemanager/internal/model"
	"filemanager/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// JobDispatcher enqueues background jobs. Failures are logged, never returned.
type JobDispatcher interface {
	Dispatch(ctx context.Context, payload any)
}

// UserService exposes account operations.
type UserService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.UserView, error)
	Count(ctx context.Context) (int64, error)
}

type userService struct {
	repo     repository.UserRepository
	cache    *cache.Client
	hasher   *auth.PasswordHasher
	welcomes JobDispatcher
	logger   *slog.Logger
}

// NewUserService builds a UserService. cache and welcomes may be nil.
func NewUserService(repo repository.UserRepository, cache *cache.Client, hasher *auth.PasswordHasher, welcomes JobDispatcher, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		repo:     repo,
		cache:    cache,
		hasher:   hasher,
		welcomes: welcomes,
		logger:   logger,
	}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// Register creates a user with a hashed password and schedules its welcome job.
func (s *userService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.NewValidationError("Missing email")
	}
	if password == "" {
		return nil, apperrors.NewValidationError("Missing password")
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, user); err != nil {
		// Lost a race against a concurrent registration of the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	if s.welcomes != nil {
		s.welcomes.Dispatch(ctx, model.WelcomeJob{UserID: user.ID})
	}
	return user, nil
}

// GetUser returns the public view of a user, read through a short-lived cache.
func (s *userService) GetUser(ctx context.Context, id uint) (*model.UserView, error) {
	if s.cache != nil {
		if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
			var cached model.UserView
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	view := user.View()
	if s.cache != nil {
		if payload, err := json.Marshal(view); err == nil {
			_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
		}
	}
	return &view, nil
}

func (s *userService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
