package payment

import (
	"context"

	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
)

// Service exposes payment reads for the admin API.
type Service struct {
	payments dompay.Repository
}

func NewService(payments dompay.Repository) *Service {
	return &Service{payments: payments}
}

func (s *Service) List(ctx context.Context, f dompay.Filter) ([]*dompay.Payment, int, error) {
	out, total, err := s.payments.List(ctx, f.Normalize())
	return out, total, wrapRepo(err)
}

func (s *Service) GetByTxRef(ctx context.Context, txRef string) (*dompay.Payment, error) {
	p, err := s.payments.FindByTxRef(ctx, txRef)
	return p, wrapRepo(err)
}
