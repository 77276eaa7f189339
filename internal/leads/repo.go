package leads

import "context"

// Filter narrows lead listings.
type Filter struct {
	Stage      string
	AssignedTo string
	Limit      int
	Offset     int
}

// Repo persists leads.
type Repo interface {
	Create(ctx context.Context, lead Lead) error
	GetByID(ctx context.Context, leadID string) (Lead, error)
	List(ctx context.Context, universityID string, filter Filter) ([]Lead, error)
	Update(ctx context.Context, lead Lead) error
}
