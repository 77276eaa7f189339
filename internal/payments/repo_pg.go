package payments

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const paymentColumns = `
id, application_id, order_id, amount, status, snap_token, redirect_url,
created_at, updated_at, paid_at`

// Create inserts a new payment.
func (r *PGRepo) Create(ctx context.Context, p Payment) error {
	const query = `
INSERT INTO payments (
    id, application_id, order_id, amount, status, snap_token, redirect_url,
    created_at, updated_at, paid_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(ctx, query,
		p.ID, p.ApplicationID, p.OrderID, p.Amount, p.Status,
		p.SnapToken, p.RedirectURL, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	return err
}

// GetByOrderID returns a payment by its gateway order reference.
func (r *PGRepo) GetByOrderID(ctx context.Context, orderID string) (Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	return scanPayment(r.DB.QueryRowContext(ctx, query, orderID))
}

// GetPendingByApplication returns the application's open payment, if any.
func (r *PGRepo) GetPendingByApplication(ctx context.Context, applicationID string) (Payment, error) {
	query := `SELECT ` + paymentColumns + `
FROM payments WHERE application_id = $1 AND status = 'pending'
ORDER BY created_at DESC LIMIT 1`
	return scanPayment(r.DB.QueryRowContext(ctx, query, applicationID))
}

// GetPaidByApplication returns the application's settled payment, if any.
func (r *PGRepo) GetPaidByApplication(ctx context.Context, applicationID string) (Payment, error) {
	query := `SELECT ` + paymentColumns + `
FROM payments WHERE application_id = $1 AND status = 'paid'
ORDER BY created_at DESC LIMIT 1`
	return scanPayment(r.DB.QueryRowContext(ctx, query, applicationID))
}

// Update replaces the mutable columns of a payment.
func (r *PGRepo) Update(ctx context.Context, p Payment) error {
	const query = `
UPDATE payments SET status = $2, snap_token = $3, redirect_url = $4,
    updated_at = $5, paid_at = $6
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query,
		p.ID, p.Status, p.SnapToken, p.RedirectURL, p.UpdatedAt, p.PaidAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPayment(row *sql.Row) (Payment, error) {
	var p Payment
	var paidAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.ApplicationID, &p.OrderID, &p.Amount, &p.Status,
		&p.SnapToken, &p.RedirectURL, &p.CreatedAt, &p.UpdatedAt, &paidAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return p, nil
}
