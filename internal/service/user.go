// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
)

// Account errors.
var (
	ErrInvalidInput       = errors.New("username and password required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// dummyPassword is hashed once and verified against when a login names an
// unknown user, so that path costs the same as a wrong password.
const dummyPassword = "spendlog-timing-equalizer"

// UserService handles registration and credential checks.
type UserService struct {
	store   repository.Store
	hasher  *auth.PasswordHasher
	metrics metrics.Recorder

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService creates a new UserService.
func NewUserService(store repository.Store, hasher *auth.PasswordHasher, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		store:   store,
		hasher:  hasher,
		metrics: recorder,
	}
}

// ValidateSignup checks a signup form before any storage access: both
// fields present first, then the confirmation.
func ValidateSignup(username, password, confirmation string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrInvalidInput
	}
	if password != confirmation {
		return ErrPasswordMismatch
	}
	return nil
}

// Register creates a user. The username is trimmed of surrounding whitespace
// and compared case-sensitively. Only the password hash is stored.
func (s *UserService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncSignup()
	return user, nil
}

// Verify returns the user when username exists and password matches.
// Every mismatch yields ErrInvalidCredentials.
func (s *UserService) Verify(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.verify(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.IncLogin(metrics.LoginFailure)
		}
		return nil, err
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return user, nil
}

func (s *UserService) verify(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.burnVerify(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// burnVerify runs a verification whose result is discarded.
func (s *UserService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	_, _ = s.hasher.Verify(password, s.dummyHash)
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
