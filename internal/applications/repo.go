package applications

import "context"

// Repo defines persistence operations for applications.
type Repo interface {
	Create(ctx context.Context, app Application) error
	GetByID(ctx context.Context, applicationID string) (Application, error)
	GetForStudent(ctx context.Context, universityID, studentID string) (Application, error)
	ListByStudent(ctx context.Context, studentID string) ([]Application, error)
	Update(ctx context.Context, app Application) error
}
