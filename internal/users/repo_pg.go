package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, email, name, role, university_id, created_at`

// Create inserts a new user.
func (r *PGRepo) Create(ctx context.Context, u User) error {
	const query = `
INSERT INTO users (id, email, name, role, university_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.DB.ExecContext(ctx, query,
		u.ID, strings.ToLower(u.Email), u.Name, u.Role,
		nullable(u.UniversityID), u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetByID returns a user by ID.
func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, userID))
}

// GetByEmail returns a user by email.
func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// ListByUniversity returns a university's staff and students, oldest first.
func (r *PGRepo) ListByUniversity(ctx context.Context, universityID string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE university_id = $1 ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, query, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepo) scanOne(row rowScanner) (User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var universityID sql.NullString

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &universityID, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	if universityID.Valid {
		u.UniversityID = universityID.String
	}
	return u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
