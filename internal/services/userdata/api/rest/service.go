// Package rest serves the user data CRUD API over HTTP.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/louisbranch/datapulse/internal/platform/httpx"
	"github.com/louisbranch/datapulse/internal/services/userdata/storage"
)

const (
	maxNameLength    = 100
	maxEmailLength   = 255
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Service validates user data operations and delegates to storage.
type Service struct {
	store storage.Store
}

// NewService creates a user data service backed by the provided store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// UserDataInput carries the client-supplied fields of a record.
type UserDataInput struct {
	Name    string
	Email   string
	Message *string
}

// CreateUserData validates the input and inserts one record.
func (s *Service) CreateUserData(ctx context.Context, input UserDataInput) (storage.UserData, error) {
	if s == nil || s.store == nil {
		return storage.UserData{}, errors.New("user data store is not configured")
	}
	record, err := validateInput(input)
	if err != nil {
		return storage.UserData{}, err
	}
	created, err := s.store.CreateUserData(ctx, record)
	if err != nil {
		return storage.UserData{}, fmt.Errorf("create user data: %w", err)
	}
	return created, nil
}

// GetUserData returns one record by ID.
func (s *Service) GetUserData(ctx context.Context, id int64) (storage.UserData, error) {
	if s == nil || s.store == nil {
		return storage.UserData{}, errors.New("user data store is not configured")
	}
	record, err := s.store.GetUserData(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.UserData{}, httpx.E(httpx.KindNotFound, "Item not found")
		}
		return storage.UserData{}, fmt.Errorf("get user data: %w", err)
	}
	return record, nil
}

// ListUserData returns records ordered newest first. A limit above the cap is
// clamped; a zero limit returns an empty page without touching storage.
func (s *Service) ListUserData(ctx context.Context, skip, limit int) ([]storage.UserData, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("user data store is not configured")
	}
	if skip < 0 {
		return nil, httpx.E(httpx.KindInvalidInput, "skip must not be negative")
	}
	if limit < 0 {
		return nil, httpx.E(httpx.KindInvalidInput, "limit must not be negative")
	}
	if limit == 0 {
		return []storage.UserData{}, nil
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	records, err := s.store.ListUserData(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list user data: %w", err)
	}
	return records, nil
}

// UpdateUserData validates the input and replaces the mutable fields of one
// record. CreatedAt is preserved by the store.
func (s *Service) UpdateUserData(ctx context.Context, id int64, input UserDataInput) (storage.UserData, error) {
	if s == nil || s.store == nil {
		return storage.UserData{}, errors.New("user data store is not configured")
	}
	record, err := validateInput(input)
	if err != nil {
		return storage.UserData{}, err
	}
	updated, err := s.store.UpdateUserData(ctx, id, record)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.UserData{}, httpx.E(httpx.KindNotFound, "Item not found")
		}
		return storage.UserData{}, fmt.Errorf("update user data: %w", err)
	}
	return updated, nil
}

// DeleteUserData removes one record and returns its last stored state.
func (s *Service) DeleteUserData(ctx context.Context, id int64) (storage.UserData, error) {
	if s == nil || s.store == nil {
		return storage.UserData{}, errors.New("user data store is not configured")
	}
	deleted, err := s.store.DeleteUserData(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.UserData{}, httpx.E(httpx.KindNotFound, "Item not found")
		}
		return storage.UserData{}, fmt.Errorf("delete user data: %w", err)
	}
	return deleted, nil
}

// CheckHealth verifies the backing database answers a trivial query.
func (s *Service) CheckHealth(ctx context.Context) error {
	if s == nil || s.store == nil {
		return errors.New("user data store is not configured")
	}
	return s.store.CheckHealth(ctx)
}

func validateInput(input UserDataInput) (storage.UserData, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return storage.UserData{}, httpx.E(httpx.KindInvalidInput, "name is required")
	}
	// Limits count characters, matching the varchar column widths.
	if utf8.RuneCountInString(name) > maxNameLength {
		return storage.UserData{}, httpx.E(httpx.KindInvalidInput, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return storage.UserData{}, httpx.E(httpx.KindInvalidInput, "email is required")
	}
	if utf8.RuneCountInString(email) > maxEmailLength {
		return storage.UserData{}, httpx.E(httpx.KindInvalidInput, fmt.Sprintf("email must be at most %d characters", maxEmailLength))
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return storage.UserData{}, httpx.E(httpx.KindInvalidInput, "email is not a valid address")
	}
	// mail.ParseAddress accepts bare hosts; deliverable addresses need a
	// dotted domain.
	if at := strings.LastIndex(email, "@"); at < 0 || !strings.Contains(email[at+1:], ".") {
		return storage.UserData{}, httpx.E(httpx.KindInvalidInput, "email domain is incomplete")
	}
	return storage.UserData{
		Name:    name,
		Email:   email,
		Message: input.Message,
	}, nil
}
