package order

import "context"

type IDGenerator interface {
	NewID() string
}

type TxRefGenerator interface {
	NewTxRef() string
}

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID string
	Admin  bool
}

// SettingsReader resolves store-wide values such as the checkout currency.
type SettingsReader interface {
	Currency(ctx context.Context) string
}
