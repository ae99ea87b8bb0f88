package model

import (
	"errors"
	"time"
)

// User represents an account.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email"`
	PasswordHashed string    `db:"password_hashed" json:"-"`
	Bio            string    `db:"bio" json:"bio"`
	PhotoURL       *string   `db:"photo_url" json:"photo_url"`
	PhotoKey       *string   `db:"photo_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Summary returns the public projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, PhotoURL: u.PhotoURL}
}

// UserSummary is the author/counterpart shape embedded in other payloads.
type UserSummary struct {
	ID       int64   `db:"id" json:"id"`
	Username string  `db:"username" json:"username"`
	PhotoURL *string `db:"photo_url" json:"photo_url"`
}

// RegisterRequest represents the sign-up form.
type RegisterRequest struct {
	Username        string  `json:"username" conform:"trim" validate:"required,min=3,max=150,username"`
	Email           string  `json:"email" conform:"trim,lower" validate:"required,email,max=254"`
	Password        string  `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string  `json:"password_confirm" validate:"required,eqfield=Password"`
	Bio             string  `json:"bio" conform:"trim" validate:"max=500"`
	PhotoURL        *string `json:"-"`
	PhotoKey        *string `json:"-"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Username string `json:"username" conform:"trim" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest changes the editable parts of a profile.
// A nil Bio leaves the bio untouched.
type UpdateProfileRequest struct {
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	RemovePhoto bool    `json:"remove_photo"`
}

const MaxBioLength = 500

var (
	ErrUserNotFound   = kind(ErrNotFound, "user not found")
	ErrUsernameExists = kind(ErrAlreadyExists, "username already exists")
	ErrEmailExists    = kind(ErrAlreadyExists, "email already registered")

	// ErrInvalidCredentials is deliberately outside the taxonomy: it must not
	// reveal whether the username exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
