package applications

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

const applicationColumns = `
id, university_id, student_id, status, current_step_key, completed_steps,
basic_info, educational_details, created_at, updated_at, submitted_at`

// Create inserts a new application.
func (r *PGRepo) Create(ctx context.Context, app Application) error {
	const query = `
INSERT INTO applications (
    id, university_id, student_id, status, current_step_key, completed_steps,
    basic_info, educational_details, created_at, updated_at, submitted_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	completed, basicInfo, eduDetails, err := marshalFields(app)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		app.ID, app.UniversityID, app.StudentID, app.Status, app.CurrentStepKey,
		completed, basicInfo, eduDetails, app.CreatedAt, app.UpdatedAt, app.SubmittedAt)
	return err
}

// GetByID returns an application by ID.
func (r *PGRepo) GetByID(ctx context.Context, applicationID string) (Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(r.DB.QueryRowContext(ctx, query, applicationID))
}

// GetForStudent returns the student's application at a university.
func (r *PGRepo) GetForStudent(ctx context.Context, universityID, studentID string) (Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE university_id = $1 AND student_id = $2`
	return scanApplication(r.DB.QueryRowContext(ctx, query, universityID, studentID))
}

// ListByStudent returns all of a student's applications, newest first.
func (r *PGRepo) ListByStudent(ctx context.Context, studentID string) ([]Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE student_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Application{}
	for rows.Next() {
		app, err := scanApplicationRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// Update replaces the mutable columns of an application.
func (r *PGRepo) Update(ctx context.Context, app Application) error {
	const query = `
UPDATE applications SET
    status = $2,
    current_step_key = $3,
    completed_steps = $4,
    basic_info = $5,
    educational_details = $6,
    updated_at = $7,
    submitted_at = $8
WHERE id = $1`

	completed, basicInfo, eduDetails, err := marshalFields(app)
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(ctx, query,
		app.ID, app.Status, app.CurrentStepKey, completed, basicInfo, eduDetails,
		app.UpdatedAt, app.SubmittedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalFields(app Application) ([]byte, []byte, []byte, error) {
	completed, err := json.Marshal(app.CompletedSteps)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal completed steps: %w", err)
	}
	var basicInfo []byte
	if app.BasicInfo != nil {
		if basicInfo, err = json.Marshal(app.BasicInfo); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal basic info: %w", err)
		}
	}
	var eduDetails []byte
	if app.EducationalDetails != nil {
		if eduDetails, err = json.Marshal(app.EducationalDetails); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal educational details: %w", err)
		}
	}
	return completed, basicInfo, eduDetails, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row *sql.Row) (Application, error) {
	app, err := scanApplicationRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	return app, nil
}

func scanApplicationRows(row rowScanner) (Application, error) {
	var app Application
	var completed []byte
	var basicInfo, eduDetails []byte
	var submittedAt sql.NullTime

	err := row.Scan(
		&app.ID, &app.UniversityID, &app.StudentID, &app.Status, &app.CurrentStepKey,
		&completed, &basicInfo, &eduDetails, &app.CreatedAt, &app.UpdatedAt, &submittedAt)
	if err != nil {
		return Application{}, err
	}

	if err := json.Unmarshal(completed, &app.CompletedSteps); err != nil {
		return Application{}, fmt.Errorf("unmarshal completed steps: %w", err)
	}
	if len(basicInfo) > 0 {
		app.BasicInfo = &BasicInfo{}
		if err := json.Unmarshal(basicInfo, app.BasicInfo); err != nil {
			return Application{}, fmt.Errorf("unmarshal basic info: %w", err)
		}
	}
	if len(eduDetails) > 0 {
		app.EducationalDetails = &EducationalDetails{}
		if err := json.Unmarshal(eduDetails, app.EducationalDetails); err != nil {
			return Application{}, fmt.Errorf("unmarshal educational details: %w", err)
		}
	}
	if submittedAt.Valid {
		app.SubmittedAt = &submittedAt.Time
	}
	return app, nil
}
