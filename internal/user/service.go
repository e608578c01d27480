package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrInactive       = errors.New("account is disabled")
	ErrSelfDemotion   = errors.New("admins cannot revoke their own admin or active flag")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Register creates a customer account. Admin accounts come from the seed tool
// or from an existing admin promoting a user.
func (s *Service) Register(ctx context.Context, in RegisterRequest) (*User, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials and returns the account. Unknown email and
// wrong password produce the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateFlags applies an admin's change to another account and returns the result.
func (s *Service) UpdateFlags(ctx context.Context, actorID, id string, in FlagsRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	isAdmin, isActive := u.IsAdmin, u.IsActive
	if in.IsAdmin != nil {
		isAdmin = *in.IsAdmin
	}
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	if actorID == id && (!isAdmin || !isActive) {
		return nil, ErrSelfDemotion
	}
	if err := s.repo.SetFlags(ctx, id, isAdmin, isActive); err != nil {
		return nil, err
	}
	u.IsAdmin, u.IsActive = isAdmin, isActive
	return u, nil
}

// EnsureAdmin creates the account as an active admin, or promotes it if the
// email is already registered. Used by the seed tool.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (*User, bool, error) {
	existing, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if err := s.repo.SetFlags(ctx, existing.ID, true, true); err != nil {
			return nil, false, err
		}
		existing.IsAdmin, existing.IsActive = true, true
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	u, err := s.Register(ctx, RegisterRequest{Email: email, Password: password, Name: name})
	if err != nil {
		return nil, false, err
	}
	if err := s.repo.SetFlags(ctx, u.ID, true, true); err != nil {
		return nil, false, err
	}
	u.IsAdmin = true
	return u, true, nil
}
