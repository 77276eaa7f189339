package universities

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]University
	configs map[string]RegistrationConfig
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]University),
		configs: make(map[string]RegistrationConfig),
	}
}

// Create stores a new university.
func (r *MemoryRepo) Create(ctx context.Context, u University) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Code == u.Code {
			return ErrDuplicateCode
		}
	}
	r.byID[u.ID] = u
	return nil
}

// GetByID returns a university by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (University, error) {
	if err := ctx.Err(); err != nil {
		return University{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return University{}, ErrNotFound
	}
	return u, nil
}

// GetByCode returns a university by its unique code.
func (r *MemoryRepo) GetByCode(ctx context.Context, code string) (University, error) {
	if err := ctx.Err(); err != nil {
		return University{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Code == code {
			return u, nil
		}
	}
	return University{}, ErrNotFound
}

// List returns universities ordered by creation time, newest first.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]University, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	all := make([]University, 0, len(r.byID))
	for _, u := range r.byID {
		all = append(all, u)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []University{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// SaveConfig stores or replaces the registration config for a university.
func (r *MemoryRepo) SaveConfig(ctx context.Context, cfg RegistrationConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[cfg.UniversityID]; !ok {
		return ErrNotFound
	}
	r.configs[cfg.UniversityID] = cfg
	return nil
}

// GetConfig returns the registration config for a university.
func (r *MemoryRepo) GetConfig(ctx context.Context, universityID string) (RegistrationConfig, error) {
	if err := ctx.Err(); err != nil {
		return RegistrationConfig{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[universityID]
	if !ok {
		return RegistrationConfig{}, ErrConfigNotFound
	}
	return cfg, nil
}
