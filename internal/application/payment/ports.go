package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
)

// Verifier settles a payment from the gateway's answer.
type Verifier = application.UseCase[VerifyPaymentInput, *VerifyPaymentResult]

type IDGenerator interface {
	NewID() string
}

type TxRefGenerator interface {
	NewTxRef() string
}

type UserReader interface {
	Get(ctx context.Context, id string) (*domuser.User, error)
}

// URLs configures where the gateway sends the customer and its server callback.
// "{tx_ref}" and "{order_id}" in ReturnURL are substituted per payment.
type URLs struct {
	Callback string
	Return   string
}

func (u URLs) returnFor(orderID, txRef string) string {
	return strings.NewReplacer("{tx_ref}", txRef, "{order_id}", orderID).Replace(u.Return)
}

// keyLocks serialises work per key (order id or tx_ref) inside this process.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
