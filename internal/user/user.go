package user

import (
	"context"
	"errors"
)

// Role is the single authorization attribute of a profile.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleStaff
}

// Profile is the identity + role record of an authenticated user. It is
// created at signup and not edited afterwards.
type Profile struct {
	UID       string  `json:"uid"`
	Email     *string `json:"email"`
	Name      string  `json:"name"`
	Role      Role    `json:"role"`
	StudentID string  `json:"studentId,omitempty"`

	passwordHash string
}

// StudentIdentifier is the key exams are filed under for this user.
func (p Profile) StudentIdentifier() string {
	if p.StudentID != "" {
		return p.StudentID
	}
	return p.UID
}

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSignup      = errors.New("invalid signup")
)

// Store is the profile half of the document store, keyed by uid.
type Store interface {
	Get(ctx context.Context, uid string) (Profile, error)
	GetByEmail(ctx context.Context, email string) (Profile, error)
	// Insert returns ErrEmailTaken when the email is already registered.
	Insert(ctx context.Context, p Profile) error
}
