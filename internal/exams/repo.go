package exams

import (
	"context"
	"time"
)

// Repo persists test attempts. One attempt per application is enforced at the
// storage layer.
type Repo interface {
	Create(ctx context.Context, attempt Attempt) error
	GetByID(ctx context.Context, attemptID string) (Attempt, error)
	GetByApplication(ctx context.Context, applicationID string) (Attempt, error)
	Update(ctx context.Context, attempt Attempt) error
	// ClaimSubmission performs the in_progress → status transition and
	// reports whether this caller won it.
	ClaimSubmission(ctx context.Context, attemptID, status string, submittedAt time.Time) (bool, error)
	// ListExpiredInProgress returns in_progress attempts whose deadline has
	// passed, for the sweep that finalizes attempts lost to a restart.
	ListExpiredInProgress(ctx context.Context, now time.Time) ([]Attempt, error)
}
