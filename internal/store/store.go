package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned (wrapped) when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned (wrapped) when an insert hits a unique key.
	ErrAlreadyExists = errors.New("already exists")
)

// User represents a registered account.
type User struct {
	ID           int64
	Login        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Message represents a message waiting for, or already fetched by, its recipient.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Body        string
	// Lang is the wire code of the language Body was written in.
	Lang      string
	Delivered bool
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, login, name, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByLogin retrieves a user by login.
	GetUserByLogin(ctx context.Context, login string) (*User, error)

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// PopMessage marks the oldest undelivered message for recipientID as delivered and returns it.
	// It returns an error wrapping ErrNotFound when nothing is pending.
	PopMessage(ctx context.Context, recipientID int64) (*Message, error)

	// CountPending returns the number of undelivered messages for recipientID.
	CountPending(ctx context.Context, recipientID int64) (int, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
