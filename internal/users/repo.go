package users

import "context"

// Repo persists user accounts.
type Repo interface {
	// Create inserts a new user. Returns ErrEmailTaken when the email is
	// already registered.
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	ListByUniversity(ctx context.Context, universityID string) ([]User, error)
}
