package payments

import "time"

// Payment statuses.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
	StatusExpired = "expired"
)

// Payment is one application-fee transaction. OrderID is the Midtrans order
// reference; SnapToken and RedirectURL come from the Snap API.
type Payment struct {
	ID            string
	ApplicationID string
	OrderID       string
	Amount        int64
	Status        string
	SnapToken     string
	RedirectURL   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        *time.Time
}
