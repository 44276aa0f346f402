package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"greenhouse/backend/services/account-service/internal/models"
	"greenhouse/backend/services/account-service/internal/password"
	"greenhouse/backend/services/account-service/internal/repository"
)

var (
	// ErrUsernameTaken is returned when attempting to register a duplicate username.
	ErrUsernameTaken = errors.New("account: username already registered")
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	// ErrMissingFields is returned when username or password is blank.
	ErrMissingFields = errors.New("account: username and password are required")
)

// UserRepository defines storage contract used by the service.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// AccountService contains registration/login logic.
type AccountService struct {
	repo   UserRepository
	hasher password.Hasher
	logger *zap.Logger
}

// NewAccountService builds AccountService.
func NewAccountService(repo UserRepository, hasher password.Hasher, logger *zap.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

// Register creates a new user.
func (s *AccountService) Register(ctx context.Context, username, pass string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || pass == "" {
		return nil, ErrMissingFields
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	stored, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Password: stored}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login checks the credentials and returns the matching user.
func (s *AccountService) Login(ctx context.Context, username, pass string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || pass == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.Password, pass); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.logger.Warn("stored credential unreadable", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
