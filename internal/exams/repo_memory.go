package exams

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	attempts map[string]Attempt
	byApp    map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		attempts: make(map[string]Attempt),
		byApp:    make(map[string]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, attempt Attempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byApp[attempt.ApplicationID]; exists {
		return ErrAttemptExists
	}
	r.attempts[attempt.ID] = attempt
	r.byApp[attempt.ApplicationID] = attempt.ID
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, attemptID string) (Attempt, error) {
	if err := ctx.Err(); err != nil {
		return Attempt{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	attempt, ok := r.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return attempt, nil
}

func (r *MemoryRepo) GetByApplication(ctx context.Context, applicationID string) (Attempt, error) {
	if err := ctx.Err(); err != nil {
		return Attempt{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byApp[applicationID]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return r.attempts[id], nil
}

func (r *MemoryRepo) Update(ctx context.Context, attempt Attempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.attempts[attempt.ID]; !ok {
		return ErrNotFound
	}
	r.attempts[attempt.ID] = attempt
	return nil
}

func (r *MemoryRepo) ClaimSubmission(ctx context.Context, attemptID, status string, submittedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, ok := r.attempts[attemptID]
	if !ok {
		return false, ErrNotFound
	}
	if attempt.Status != StatusInProgress {
		return false, nil
	}
	attempt.Status = status
	attempt.SubmittedAt = &submittedAt
	r.attempts[attemptID] = attempt
	return true, nil
}

func (r *MemoryRepo) ListExpiredInProgress(ctx context.Context, now time.Time) ([]Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Attempt{}
	for _, attempt := range r.attempts {
		if attempt.Status == StatusInProgress && attempt.Expired(now) {
			out = append(out, attempt)
		}
	}
	return out, nil
}
