package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SignupInput is what a new user submits.
type SignupInput struct {
	Name      string `json:"name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      Role   `json:"role" validate:"required,oneof=student staff"`
	StudentID string `json:"studentId"`
}

// Service creates and authenticates profiles.
type Service struct {
	store    Store
	validate *validator.Validate
	cost     int
}

// NewService creates a service backed by a profile store.
func NewService(store Store) *Service {
	return &Service{store: store, validate: validator.New(), cost: bcrypt.DefaultCost}
}

// Signup validates in, hashes the password and stores the profile. Students
// without an explicit student id are filed under their uid; staff never
// carry one.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Profile, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidSignup, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}

	email := in.Email
	p := Profile{
		UID:          uuid.NewString(),
		Email:        &email,
		Name:         in.Name,
		Role:         in.Role,
		passwordHash: string(hash),
	}
	if p.Role == RoleStudent {
		p.StudentID = strings.TrimSpace(in.StudentID)
		if p.StudentID == "" {
			p.StudentID = p.UID
		}
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Authenticate checks an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Profile, error) {
	p, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return Profile{}, ErrInvalidCredentials
	}
	if err != nil {
		return Profile{}, err
	}
	if p.passwordHash == "" || bcrypt.CompareHashAndPassword([]byte(p.passwordHash), []byte(password)) != nil {
		return Profile{}, ErrInvalidCredentials
	}
	return p, nil
}

// Get looks a profile up by uid.
func (s *Service) Get(ctx context.Context, uid string) (Profile, error) {
	return s.store.Get(ctx, uid)
}
