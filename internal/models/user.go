package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
//
// Accounts are created through the auth gateway; the group and expense
// services only ever read users (identity lookup by email or ID).
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique).
	Email string

	// DisplayName is the name shown in group rosters.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	// Only the auth gateway reads or writes this field.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last account change.
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
