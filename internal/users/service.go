package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"admissions-backend/internal/universities"
)

// Service implements account management.
type Service struct {
	Repo    Repo
	UniRepo universities.Repo
}

// RegisterStudent self-registers a student account. Registering the same
// email again returns the existing student account unchanged.
func (s *Service) RegisterStudent(ctx context.Context, email, name string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	existing, err := s.Repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != RoleStudent {
			return User{}, ErrEmailTaken
		}
		return existing, nil
	case errors.Is(err, ErrNotFound):
		// First registration, fall through to create.
	default:
		return User{}, err
	}

	u := User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Role:      RoleStudent,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateStaff provisions a staff account. super_admin can create admins and
// counsellors for any university; university_admin can create counsellors for
// their own.
func (s *Service) CreateStaff(ctx context.Context, callerRole, callerUniversityID, email, name, role, universityID string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if role != RoleUniversityAdmin && role != RoleCounsellor {
		return User{}, fmt.Errorf("%w: role must be university_admin or counsellor", ErrInvalidInput)
	}

	switch callerRole {
	case RoleSuperAdmin:
		// Any university.
	case RoleUniversityAdmin:
		if role != RoleCounsellor {
			return User{}, ErrForbidden
		}
		universityID = callerUniversityID
	default:
		return User{}, ErrForbidden
	}

	if universityID == "" {
		return User{}, fmt.Errorf("%w: universityId is required", ErrInvalidInput)
	}
	if _, err := s.UniRepo.GetByID(ctx, universityID); err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		UniversityID: universityID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	return s.Repo.GetByID(ctx, userID)
}

// ByEmail returns the account registered under the given email. Used by the
// Google sign-in callback to resolve the caller's role and university scope.
func (s *Service) ByEmail(ctx context.Context, email string) (User, error) {
	return s.Repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

// ListByUniversity returns a university's accounts.
func (s *Service) ListByUniversity(ctx context.Context, universityID string) ([]User, error) {
	if universityID == "" {
		return nil, fmt.Errorf("%w: universityId is required", ErrInvalidInput)
	}
	return s.Repo.ListByUniversity(ctx, universityID)
}
