// Package testutil provides an in-memory SQLite store with the service's
// tables, plus fixtures for users, templates and arbitrary tables.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ogabook-admin/internal/config"
	"ogabook-admin/internal/store"
)

// NewStore opens a bootstrapped in-memory SQLite store closed at test cleanup.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Bootstrap(ctx, "", ""))
	return s
}

// MustExec runs a statement against the store or fails the test.
func MustExec(t *testing.T, s *store.Store, stmt string, args ...any) {
	t.Helper()
	_, err := s.DB.ExecContext(context.Background(), stmt, args...)
	require.NoError(t, err, stmt)
}

// User is a row of the users table.
type User struct {
	ID           string
	Email        string
	Username     string
	Password     string
	Role         string
	Active       any
	Phone        string
	FirstName    string
	LastName     string
	BusinessType string
}

// UserOption is a functional option for configuring test users
type UserOption func(*User)

// WithID sets the user id
func WithID(id string) UserOption {
	return func(u *User) { u.ID = id }
}

// WithPassword sets the plaintext password that gets hashed on insert
func WithPassword(password string) UserOption {
	return func(u *User) { u.Password = password }
}

// WithRole sets the role column
func WithRole(role string) UserOption {
	return func(u *User) { u.Role = role }
}

// WithActive sets is_active; pass nil for NULL
func WithActive(active any) UserOption {
	return func(u *User) { u.Active = active }
}

// WithName sets first and last name
func WithName(first, last string) UserOption {
	return func(u *User) {
		u.FirstName = first
		u.LastName = last
	}
}

// WithUsername sets the username
func WithUsername(username string) UserOption {
	return func(u *User) { u.Username = username }
}

// WithPhone sets the phone number
func WithPhone(phone string) UserOption {
	return func(u *User) { u.Phone = phone }
}

// WithBusinessType sets the manager business type
func WithBusinessType(bt string) UserOption {
	return func(u *User) { u.BusinessType = bt }
}

// InsertUser adds a user and returns it with defaults filled in.
func InsertUser(t *testing.T, s *store.Store, email string, opts ...UserOption) User {
	t.Helper()
	u := User{
		ID:       uuid.NewString(),
		Email:    email,
		Username: "user",
		Role:     "manager",
		Active:   true,
	}
	for _, opt := range opts {
		opt(&u)
	}

	var hash any
	if u.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(b)
	}

	MustExec(t, s,
		`INSERT INTO users (id, email, username, password_hash, role, is_active, phone, first_name, last_name, business_type)
		 VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10)`,
		u.ID, u.Email, nullable(u.Username), hash, u.Role, u.Active,
		nullable(u.Phone), nullable(u.FirstName), nullable(u.LastName), nullable(u.BusinessType))
	return u
}

// InsertTemplate adds a notification template and returns its id.
func InsertTemplate(t *testing.T, s *store.Store, name, title, message string, active bool) int64 {
	t.Helper()
	res, err := s.DB.ExecContext(context.Background(),
		`INSERT INTO notification_templates (name, title, message, category, is_active) VALUES (?1, ?2, ?3, ?4, ?5)`,
		name, title, message, "general", active)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
