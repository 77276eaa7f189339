package payments

import "context"

// Repo persists fee payments.
type Repo interface {
	Create(ctx context.Context, p Payment) error
	GetByOrderID(ctx context.Context, orderID string) (Payment, error)
	GetPendingByApplication(ctx context.Context, applicationID string) (Payment, error)
	GetPaidByApplication(ctx context.Context, applicationID string) (Payment, error)
	Update(ctx context.Context, p Payment) error
}
