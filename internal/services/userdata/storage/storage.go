// Package storage defines persistence contracts for user data records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound indicates a requested user data record is missing.
var ErrNotFound = errors.New("record not found")

// UserData stores one submitted record. Message is nil when the submitter
// left it out. CreatedAt is assigned by the store and never changes.
type UserData struct {
	ID        int64
	Name      string
	Email     string
	Message   *string
	CreatedAt time.Time
}

// Store persists user data records.
type Store interface {
	// CreateUserData inserts one record and returns it with ID and
	// CreatedAt assigned.
	CreateUserData(ctx context.Context, record UserData) (UserData, error)
	// GetUserData returns one record by ID.
	GetUserData(ctx context.Context, id int64) (UserData, error)
	// ListUserData returns records ordered newest first.
	ListUserData(ctx context.Context, skip, limit int) ([]UserData, error)
	// UpdateUserData replaces the mutable fields of one record and returns
	// the stored result. CreatedAt is preserved.
	UpdateUserData(ctx context.Context, id int64, record UserData) (UserData, error)
	// DeleteUserData removes one record and returns its last stored state.
	DeleteUserData(ctx context.Context, id int64) (UserData, error)
	// CheckHealth verifies the backing database answers a trivial query.
	CheckHealth(ctx context.Context) error
	// Stats reports live connection pool statistics.
	Stats() sql.DBStats
	Close() error
}
