package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"socialmedia/internal/models"
)

// MinPasswordLength is the shortest password Register accepts, in characters.
const MinPasswordLength = 4

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, acct models.Account) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByUsernameAndPassword(ctx context.Context, username, password string) (*models.Account, error)
}

// Service handles account registration and login.
type Service struct {
	store Store
}

// NewService builds a new account service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// FindByUsername looks up one account by exact username.
func (s *Service) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	acct, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acct, nil
}

// Register validates and stores a new account. Username uniqueness is the
// caller's concern; see FindByUsername.
func (s *Service) Register(ctx context.Context, candidate models.Account) (*models.Account, error) {
	if candidate.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidAccount)
	}
	if utf8.RuneCountInString(candidate.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidAccount, MinPasswordLength)
	}
	candidate.ID = 0
	acct, err := s.store.Create(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	return acct, nil
}

// Authenticate returns the account whose username and password both match exactly.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	acct, err := s.store.FindByUsernameAndPassword(ctx, username, password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return acct, nil
}
