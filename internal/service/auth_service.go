package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"filemanager/internal/auth"
	apperrors "filemanager/internal/errors"
	"filemanager/internal/model"
	"filemanager/internal/repository"
)

// AuthService handles credential checks and session lifecycle.
type AuthService interface {
	// Authenticate returns the user owning email when password matches.
	// Unknown emails and wrong passwords both yield ErrUnauthorized.
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	// Connect authenticates and opens a new session, returning its token.
	Connect(ctx context.Context, email, password string) (string, error)
	// Disconnect destroys the session behind token.
	Disconnect(ctx context.Context, token string) error
	// Resolve returns the user id behind token.
	Resolve(ctx context.Context, token string) (uint, error)
}

type authService struct {
	users    repository.UserRepository
	sessions auth.SessionStore
	hasher   *auth.PasswordHasher
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, sessions auth.SessionStore, hasher *auth.PasswordHasher, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}
}

// Authenticate verifies credentials against the stored bcrypt hash.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Spend the same bcrypt time as for a known email.
			_ = s.hasher.Compare(s.dummy(), password)
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return user, nil
}

func (s *authService) Connect(ctx context.Context, email, password string) (string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", err
	}
	s.logger.Info("session opened", "user_id", user.ID)
	return token, nil
}

func (s *authService) Disconnect(ctx context.Context, token string) error {
	userID, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return err
	}
	s.logger.Info("session closed", "user_id", userID)
	return nil
}

func (s *authService) Resolve(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, apperrors.ErrUnauthorized
	}
	userID, ok, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperrors.ErrUnauthorized
	}
	return userID, nil
}

func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
