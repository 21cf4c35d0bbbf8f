package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/flowchat/internal/store"
)

var (
	// ErrInvalidCredentials is returned when login/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with an existing login.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidLogin is returned when login doesn't meet constraints.
	ErrInvalidLogin = errors.New("invalid login")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidName is returned when the display name doesn't meet constraints.
	ErrInvalidName = errors.New("invalid name")
)

// Service provides account and session operations.
type Service struct {
	store    store.UserStore
	sessions *Sessions
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, sessions *Sessions) *Service {
	if sessions == nil {
		sessions = NewSessions(0)
	}
	return &Service{
		store:    userStore,
		sessions: sessions,
	}
}

// Register creates a new user with hashed password.
func (s *Service) Register(ctx context.Context, login, password, name string) (*store.User, error) {
	login, err := normalizeLogin(login)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	name, err = normalizeName(name, login)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetUserByLogin(ctx, login)
	if err == nil && existing != nil {
		return nil, ErrUserExists
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	// A concurrent REGISTER for the same login can pass the lookup above.
	user, err := s.store.CreateUser(ctx, login, name, hashedPassword)
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login validates credentials and issues a session.
func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	user, err := s.store.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.sessions.Issue(user), nil
}

// Session resolves a session token.
func (s *Service) Session(token string) (Session, bool) {
	return s.sessions.Lookup(token)
}

// Sessions exposes the session table.
func (s *Service) Sessions() *Sessions {
	return s.sessions
}
