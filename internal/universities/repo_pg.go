package universities

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new university.
func (r *PGRepo) Create(ctx context.Context, u University) error {
	const query = `
INSERT INTO universities (id, name, code, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.DB.ExecContext(ctx, query, u.ID, u.Name, u.Code, u.CreatedAt)
	return err
}

// GetByID returns a university by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (University, error) {
	const query = `
SELECT id, name, code, created_at
FROM universities
WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// GetByCode returns a university by its unique code.
func (r *PGRepo) GetByCode(ctx context.Context, code string) (University, error) {
	const query = `
SELECT id, name, code, created_at
FROM universities
WHERE code = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, code))
}

// List returns universities newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]University, error) {
	const query = `
SELECT id, name, code, created_at
FROM universities
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []University{}
	for rows.Next() {
		var u University
		if err := rows.Scan(&u.ID, &u.Name, &u.Code, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SaveConfig upserts the registration config for a university.
func (r *PGRepo) SaveConfig(ctx context.Context, cfg RegistrationConfig) error {
	const query = `
INSERT INTO registration_configs (
    university_id, steps, required_documents, fee_amount, test_duration_seconds, test_questions, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (university_id) DO UPDATE SET
    steps = EXCLUDED.steps,
    required_documents = EXCLUDED.required_documents,
    fee_amount = EXCLUDED.fee_amount,
    test_duration_seconds = EXCLUDED.test_duration_seconds,
    test_questions = EXCLUDED.test_questions,
    updated_at = EXCLUDED.updated_at`

	steps, err := json.Marshal(cfg.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	docs, err := json.Marshal(cfg.RequiredDocuments)
	if err != nil {
		return fmt.Errorf("marshal required documents: %w", err)
	}
	questions, err := json.Marshal(cfg.TestQuestions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, query,
		cfg.UniversityID, steps, docs, cfg.FeeAmount, cfg.TestDurationSeconds, questions, cfg.UpdatedAt)
	return err
}

// GetConfig returns the registration config for a university.
func (r *PGRepo) GetConfig(ctx context.Context, universityID string) (RegistrationConfig, error) {
	const query = `
SELECT university_id, steps, required_documents, fee_amount, test_duration_seconds, test_questions, updated_at
FROM registration_configs
WHERE university_id = $1`

	var cfg RegistrationConfig
	var steps, docs, questions []byte
	err := r.DB.QueryRowContext(ctx, query, universityID).Scan(
		&cfg.UniversityID, &steps, &docs, &cfg.FeeAmount, &cfg.TestDurationSeconds, &questions, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RegistrationConfig{}, ErrConfigNotFound
		}
		return RegistrationConfig{}, err
	}

	if err := json.Unmarshal(steps, &cfg.Steps); err != nil {
		return RegistrationConfig{}, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := json.Unmarshal(docs, &cfg.RequiredDocuments); err != nil {
		return RegistrationConfig{}, fmt.Errorf("unmarshal required documents: %w", err)
	}
	if err := json.Unmarshal(questions, &cfg.TestQuestions); err != nil {
		return RegistrationConfig{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return cfg, nil
}

func (r *PGRepo) scanOne(row *sql.Row) (University, error) {
	var u University
	err := row.Scan(&u.ID, &u.Name, &u.Code, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return University{}, ErrNotFound
		}
		return University{}, err
	}
	return u, nil
}
