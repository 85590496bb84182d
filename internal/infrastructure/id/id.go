package id

import (
	"strings"

	"github.com/google/uuid"
)

const TxRefPrefix = "minishop-"

// UUIDGenerator hands out random v4 identifiers, transaction references and session tokens.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }

func (UUIDGenerator) NewTxRef() string { return TxRefPrefix + uuid.NewString() }

// NewToken joins two random UUIDs into a 64 character opaque bearer token.
func (UUIDGenerator) NewToken() string {
	a, b := uuid.New(), uuid.New()
	return strings.ReplaceAll(a.String()+b.String(), "-", "")
}
