package leads

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	leads map[string]Lead
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: make(map[string]Lead)}
}

func (r *MemoryRepo) Create(ctx context.Context, lead Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[lead.ID] = lead
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, leadID string) (Lead, error) {
	if err := ctx.Err(); err != nil {
		return Lead{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[leadID]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return lead, nil
}

func (r *MemoryRepo) List(ctx context.Context, universityID string, filter Filter) ([]Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Lead{}
	for _, lead := range r.leads {
		if lead.UniversityID != universityID {
			continue
		}
		if filter.Stage != "" && lead.Stage != filter.Stage {
			continue
		}
		if filter.AssignedTo != "" && lead.AssignedTo != filter.AssignedTo {
			continue
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []Lead{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, lead Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[lead.ID]; !ok {
		return ErrNotFound
	}
	r.leads[lead.ID] = lead
	return nil
}
