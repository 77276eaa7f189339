package payments

import (
	"context"
	"errors"
	"testing"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/universities"
)

type fakeSnap struct {
	calls int
	err   *midtrans.Error
}

func (f *fakeSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &snap.Response{Token: "tok-1", RedirectURL: "https://snap.example/pay"}, nil
}

type fakeCore struct {
	status string
	fraud  string
}

func (f *fakeCore) CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error) {
	return &coreapi.TransactionStatusResponse{
		OrderID:           orderID,
		TransactionStatus: f.status,
		FraudStatus:       f.fraud,
	}, nil
}

func setupPayments(t *testing.T, snapAPI SnapAPI, core StatusAPI) (*Service, string) {
	t.Helper()
	uniRepo := universities.NewMemoryRepo()

	uni := universities.University{ID: "uni-1", Name: "Test University", Code: "TU"}
	if err := uniRepo.Create(context.Background(), uni); err != nil {
		t.Fatalf("create university: %v", err)
	}
	cfg := universities.RegistrationConfig{
		UniversityID: uni.ID,
		Steps: []string{
			universities.StepBasicInfo,
			universities.StepPayment,
			universities.StepFinalSubmission,
		},
		FeeAmount: 50000,
	}
	if err := uniRepo.SaveConfig(context.Background(), cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	apps := &applications.Service{
		Repo:    applications.NewMemoryRepo(),
		UniRepo: uniRepo,
	}
	app, _, err := apps.Start(context.Background(), uni.ID, "student-1")
	if err != nil {
		t.Fatalf("start application: %v", err)
	}

	svc := &Service{
		Repo:    NewMemoryRepo(),
		Apps:    apps,
		UniRepo: uniRepo,
		Snap:    snapAPI,
		Core:    core,
	}
	return svc, app.ID
}

func TestCreateTransaction(t *testing.T) {
	snapAPI := &fakeSnap{}
	svc, appID := setupPayments(t, snapAPI, &fakeCore{})

	payment, err := svc.CreateTransaction(context.Background(), appID, "student-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if payment.Amount != 50000 || payment.Status != StatusPending {
		t.Fatalf("unexpected payment %+v", payment)
	}
	if payment.SnapToken != "tok-1" || payment.RedirectURL == "" {
		t.Fatalf("expected snap token and redirect url, got %+v", payment)
	}

	// A second call returns the open transaction, without a new gateway hit.
	again, err := svc.CreateTransaction(context.Background(), appID, "student-1")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if again.ID != payment.ID {
		t.Fatalf("expected the same pending payment, got %s and %s", payment.ID, again.ID)
	}
	if snapAPI.calls != 1 {
		t.Fatalf("expected one gateway call, got %d", snapAPI.calls)
	}
}

func TestCreateTransactionGatewayFailure(t *testing.T) {
	snapAPI := &fakeSnap{err: &midtrans.Error{Message: "gateway down", StatusCode: 502}}
	svc, appID := setupPayments(t, snapAPI, &fakeCore{})

	if _, err := svc.CreateTransaction(context.Background(), appID, "student-1"); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
}

func TestNotificationSettlementMarksStep(t *testing.T) {
	svc, appID := setupPayments(t, &fakeSnap{}, &fakeCore{status: "settlement"})

	payment, err := svc.CreateTransaction(context.Background(), appID, "student-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.HandleNotification(context.Background(), payment.OrderID); err != nil {
		t.Fatalf("notification: %v", err)
	}

	updated, err := svc.Repo.GetByOrderID(context.Background(), payment.OrderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.Status != StatusPaid || updated.PaidAt == nil {
		t.Fatalf("expected paid with timestamp, got %+v", updated)
	}

	app, _ := svc.Apps.GetAny(context.Background(), appID)
	found := false
	for _, key := range app.CompletedSteps {
		if key == universities.StepPayment {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected payment step completed, got %v", app.CompletedSteps)
	}

	// Duplicate notification is a no-op.
	if err := svc.HandleNotification(context.Background(), payment.OrderID); err != nil {
		t.Fatalf("duplicate notification: %v", err)
	}
}

func TestNotificationExpire(t *testing.T) {
	svc, appID := setupPayments(t, &fakeSnap{}, &fakeCore{status: "expire"})

	payment, _ := svc.CreateTransaction(context.Background(), appID, "student-1")
	if err := svc.HandleNotification(context.Background(), payment.OrderID); err != nil {
		t.Fatalf("notification: %v", err)
	}

	updated, _ := svc.Repo.GetByOrderID(context.Background(), payment.OrderID)
	if updated.Status != StatusExpired {
		t.Fatalf("expected expired, got %s", updated.Status)
	}
}

func TestNotificationUnknownOrder(t *testing.T) {
	svc, _ := setupPayments(t, &fakeSnap{}, &fakeCore{status: "settlement"})

	if err := svc.HandleNotification(context.Background(), "adm-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMapGatewayStatus(t *testing.T) {
	cases := []struct {
		status, fraud, want string
	}{
		{"capture", "accept", StatusPaid},
		{"capture", "challenge", ""},
		{"settlement", "", StatusPaid},
		{"deny", "", StatusFailed},
		{"cancel", "", StatusFailed},
		{"expire", "", StatusExpired},
		{"pending", "", ""},
	}
	for _, tc := range cases {
		if got := mapGatewayStatus(tc.status, tc.fraud); got != tc.want {
			t.Fatalf("%s/%s: expected %q, got %q", tc.status, tc.fraud, tc.want, got)
		}
	}
}
