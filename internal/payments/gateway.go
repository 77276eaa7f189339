package payments

import (
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// SnapAPI creates Snap transactions. *snap.Client satisfies it.
type SnapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// StatusAPI verifies a transaction's authoritative status with the gateway.
// Webhook payloads are never trusted on their own. *coreapi.Client satisfies
// it.
type StatusAPI interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

func environment(production bool) midtrans.EnvironmentType {
	if production {
		return midtrans.Production
	}
	return midtrans.Sandbox
}

// NewSnapClient builds the Snap client for the configured environment.
func NewSnapClient(serverKey string, production bool) *snap.Client {
	client := &snap.Client{}
	client.New(serverKey, environment(production))
	return client
}

// NewCoreClient builds the Core API client for status verification.
func NewCoreClient(serverKey string, production bool) *coreapi.Client {
	client := &coreapi.Client{}
	client.New(serverKey, environment(production))
	return client
}
