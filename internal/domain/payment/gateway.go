package payment

import (
	"context"
	"errors"
)

var (
	ErrGateway = errors.New("payment: gateway failure")
	// ErrTransactionNotFound means the gateway has no record of the tx_ref yet,
	// typically because the customer never opened the checkout page.
	ErrTransactionNotFound = errors.New("payment: transaction not found at gateway")
)

type InitRequest struct {
	TxRef       string
	Amount      int64
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	Title       string
	Description string
	CallbackURL string
	ReturnURL   string
}

type InitResult struct {
	CheckoutURL string
}

type GatewayStatus string

const (
	GatewaySuccess GatewayStatus = "success"
	GatewayPending GatewayStatus = "pending"
	GatewayFailed  GatewayStatus = "failed"
)

// Verification is the gateway's view of a transaction; Amount is in minor units.
type Verification struct {
	TxRef     string
	Status    GatewayStatus
	Amount    int64
	Currency  string
	Reference string
}

// Gateway is the outbound port to the hosted payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req InitRequest) (*InitResult, error)
	Verify(ctx context.Context, txRef string) (*Verification, error)
}
