package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/shared/telemetry"
	"admissions-backend/internal/universities"
)

// Service handles the application-fee step through the Midtrans gateway.
type Service struct {
	Repo    Repo
	Apps    *applications.Service
	UniRepo universities.Repo
	Snap    SnapAPI
	Core    StatusAPI
}

// CreateTransaction opens (or returns) the application's pending fee
// transaction. The student is charged the university's configured fee.
func (s *Service) CreateTransaction(ctx context.Context, applicationID, studentID string) (Payment, error) {
	app, err := s.Apps.Get(ctx, applicationID, studentID)
	if err != nil {
		return Payment{}, err
	}
	if app.Status == applications.StatusSubmitted {
		return Payment{}, applications.ErrAlreadySubmitted
	}

	cfg, err := s.UniRepo.GetConfig(ctx, app.UniversityID)
	if err != nil {
		return Payment{}, err
	}
	if !cfg.HasStep(universities.StepPayment) || cfg.FeeAmount <= 0 {
		return Payment{}, ErrNotConfigured
	}

	if _, err := s.Repo.GetPaidByApplication(ctx, applicationID); err == nil {
		return Payment{}, ErrAlreadyPaid
	} else if !errors.Is(err, ErrNotFound) {
		return Payment{}, err
	}

	// One open transaction per application; repeated clicks get the same
	// Snap token back.
	pending, err := s.Repo.GetPendingByApplication(ctx, applicationID)
	switch {
	case err == nil:
		return pending, nil
	case !errors.Is(err, ErrNotFound):
		return Payment{}, err
	}

	orderID := "adm-" + uuid.NewString()
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: cfg.FeeAmount,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       orderID,
				Price:    cfg.FeeAmount,
				Qty:      1,
				Name:     "Application fee",
				Category: "admissions",
			},
		},
	}
	if app.BasicInfo != nil {
		first, last := splitName(app.BasicInfo.FullName)
		req.CustomerDetail = &midtrans.CustomerDetails{
			FName: first,
			LName: last,
			Email: app.BasicInfo.Email,
			Phone: app.BasicInfo.Phone,
		}
	}

	resp, snapErr := s.Snap.CreateTransaction(req)
	if snapErr != nil {
		return Payment{}, fmt.Errorf("%w: %v", ErrGateway, snapErr)
	}

	now := time.Now().UTC()
	payment := Payment{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		OrderID:       orderID,
		Amount:        cfg.FeeAmount,
		Status:        StatusPending,
		SnapToken:     resp.Token,
		RedirectURL:   resp.RedirectURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Create(ctx, payment); err != nil {
		return Payment{}, err
	}

	telemetry.Info("payment.created", map[string]any{
		"application_id": applicationID,
		"order_id":       orderID,
		"amount":         cfg.FeeAmount,
	})
	return payment, nil
}

// Status returns the application's most relevant payment.
func (s *Service) Status(ctx context.Context, applicationID, studentID string) (Payment, error) {
	if _, err := s.Apps.Get(ctx, applicationID, studentID); err != nil {
		return Payment{}, err
	}
	if paid, err := s.Repo.GetPaidByApplication(ctx, applicationID); err == nil {
		return paid, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Payment{}, err
	}
	return s.Repo.GetPendingByApplication(ctx, applicationID)
}

// HandleNotification processes a gateway webhook. The order's status is
// re-verified with the gateway before anything changes; duplicate
// notifications are no-ops.
func (s *Service) HandleNotification(ctx context.Context, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidInput)
	}

	payment, err := s.Repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	status, checkErr := s.Core.CheckTransaction(orderID)
	if checkErr != nil {
		return fmt.Errorf("%w: %v", ErrGateway, checkErr)
	}

	next := mapGatewayStatus(status.TransactionStatus, status.FraudStatus)
	if next == "" || next == payment.Status {
		return nil
	}

	now := time.Now().UTC()
	payment.Status = next
	payment.UpdatedAt = now
	if next == StatusPaid {
		payment.PaidAt = &now
	}
	if err := s.Repo.Update(ctx, payment); err != nil {
		return err
	}

	telemetry.Info("payment.status_changed", map[string]any{
		"order_id": orderID,
		"status":   next,
	})

	if next == StatusPaid {
		return s.Apps.MarkStepCompleted(ctx, payment.ApplicationID, universities.StepPayment)
	}
	return nil
}

// mapGatewayStatus folds the Midtrans transaction and fraud statuses into a
// payment status. An empty return means no change yet.
func mapGatewayStatus(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "accept" || fraudStatus == "" {
			return StatusPaid
		}
		return ""
	case "settlement":
		return StatusPaid
	case "deny", "cancel":
		return StatusFailed
	case "expire":
		return StatusExpired
	default:
		return ""
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
