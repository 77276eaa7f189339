package payments

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	payments map[string]Payment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{payments: make(map[string]Payment)}
}

func (r *MemoryRepo) Create(ctx context.Context, p Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = p
	return nil
}

func (r *MemoryRepo) GetByOrderID(ctx context.Context, orderID string) (Payment, error) {
	if err := ctx.Err(); err != nil {
		return Payment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return Payment{}, ErrNotFound
}

func (r *MemoryRepo) GetPendingByApplication(ctx context.Context, applicationID string) (Payment, error) {
	return r.findByStatus(ctx, applicationID, StatusPending)
}

func (r *MemoryRepo) GetPaidByApplication(ctx context.Context, applicationID string) (Payment, error) {
	return r.findByStatus(ctx, applicationID, StatusPaid)
}

func (r *MemoryRepo) Update(ctx context.Context, p Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.ID]; !ok {
		return ErrNotFound
	}
	r.payments[p.ID] = p
	return nil
}

func (r *MemoryRepo) findByStatus(ctx context.Context, applicationID, status string) (Payment, error) {
	if err := ctx.Err(); err != nil {
		return Payment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payments {
		if p.ApplicationID == applicationID && p.Status == status {
			return p, nil
		}
	}
	return Payment{}, ErrNotFound
}
