package universities

import "context"

// Repo defines persistence operations for universities and their configs.
type Repo interface {
	Create(ctx context.Context, u University) error
	GetByID(ctx context.Context, id string) (University, error)
	GetByCode(ctx context.Context, code string) (University, error)
	List(ctx context.Context, limit, offset int) ([]University, error)
	SaveConfig(ctx context.Context, cfg RegistrationConfig) error
	GetConfig(ctx context.Context, universityID string) (RegistrationConfig, error)
}
