package leads

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

const leadColumns = `
id, university_id, name, email, phone, source, stage, assigned_to, notes,
created_at, updated_at`

// Create inserts a new lead.
func (r *PGRepo) Create(ctx context.Context, lead Lead) error {
	const query = `
INSERT INTO leads (
    id, university_id, name, email, phone, source, stage, assigned_to, notes,
    created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	notes, err := marshalNotes(lead.Notes)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		lead.ID, lead.UniversityID, lead.Name, lead.Email, lead.Phone,
		lead.Source, lead.Stage, nullable(lead.AssignedTo), notes,
		lead.CreatedAt, lead.UpdatedAt)
	return err
}

// GetByID returns a lead by ID.
func (r *PGRepo) GetByID(ctx context.Context, leadID string) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLeadRows(r.DB.QueryRowContext(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return lead, nil
}

// List returns a university's leads, newest first.
func (r *PGRepo) List(ctx context.Context, universityID string, filter Filter) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE university_id = $1`
	args := []any{universityID}

	if filter.Stage != "" {
		args = append(args, filter.Stage)
		query += fmt.Sprintf(" AND stage = $%d", len(args))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		query += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Lead{}
	for rows.Next() {
		lead, err := scanLeadRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// Update replaces the mutable columns of a lead.
func (r *PGRepo) Update(ctx context.Context, lead Lead) error {
	const query = `
UPDATE leads SET name = $2, email = $3, phone = $4, source = $5, stage = $6,
    assigned_to = $7, notes = $8, updated_at = $9
WHERE id = $1`

	notes, err := marshalNotes(lead.Notes)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Source, lead.Stage,
		nullable(lead.AssignedTo), notes, lead.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalNotes(notes []Note) ([]byte, error) {
	if notes == nil {
		notes = []Note{}
	}
	data, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("marshal notes: %w", err)
	}
	return data, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLeadRows(row rowScanner) (Lead, error) {
	var lead Lead
	var assignedTo sql.NullString
	var notes []byte

	err := row.Scan(
		&lead.ID, &lead.UniversityID, &lead.Name, &lead.Email, &lead.Phone,
		&lead.Source, &lead.Stage, &assignedTo, &notes,
		&lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return Lead{}, err
	}
	if assignedTo.Valid {
		lead.AssignedTo = assignedTo.String
	}
	if err := json.Unmarshal(notes, &lead.Notes); err != nil {
		return Lead{}, fmt.Errorf("unmarshal notes: %w", err)
	}
	return lead, nil
}
