package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const useCasePaymentWebhook = "payment.webhook"

var ErrInvalidSignature = errors.New("payment: invalid webhook signature")

type WebhookInput struct {
	Body []byte
	// PayloadSignature is the x-chapa-signature header: HMAC-SHA256 of Body.
	PayloadSignature string
	// SecretSignature is the chapa-signature header: HMAC-SHA256 of the secret itself.
	SecretSignature string
}

type webhookPayload struct {
	Event  string `json:"event"`
	TxRef  string `json:"tx_ref"`
	Status string `json:"status"`
	Data   *struct {
		TxRef string `json:"tx_ref"`
	} `json:"data"`
}

// HandleWebhookUseCase authenticates a gateway callback and re-verifies the
// referenced transaction. The status in the body is never trusted.
type HandleWebhookUseCase struct {
	secret []byte
	verify Verifier
	ins    observability.Instruments
}

func NewHandleWebhookUseCase(secret string, verify Verifier, tel observability.Observability) *HandleWebhookUseCase {
	return &HandleWebhookUseCase{
		secret: []byte(secret),
		verify: verify,
		ins:    observability.Resolve(tel, paymentService),
	}
}

func (uc *HandleWebhookUseCase) Execute(ctx context.Context, in WebhookInput) (_ *VerifyPaymentResult, err error) {
	ctx, call := application.Begin(ctx, uc.ins, useCasePaymentWebhook, "HandleWebhook")
	defer func() { call.End(err) }()

	if !uc.authentic(in) {
		call.Fail("SIGNATURE_INVALID")
		return nil, ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(in.Body, &payload); err != nil {
		call.Fail("BODY_INVALID")
		return nil, fmt.Errorf("%w: webhook body: %v", ErrValidation, err)
	}
	txRef := strings.TrimSpace(payload.TxRef)
	if txRef == "" && payload.Data != nil {
		txRef = strings.TrimSpace(payload.Data.TxRef)
	}
	if txRef == "" {
		call.Fail("TX_REF_MISSING")
		return nil, fmt.Errorf("%w: webhook without tx_ref", ErrValidation)
	}
	call.With(
		observability.F("tx_ref", txRef),
		observability.F("webhook_event", payload.Event),
		observability.F("claimed_status", payload.Status),
	)

	res, err := uc.verify.Execute(ctx, VerifyPaymentInput{TxRef: txRef, Trigger: TriggerWebhook})
	if err != nil {
		call.Fail("VERIFY_FAILED")
		return nil, err
	}
	return res, nil
}

func (uc *HandleWebhookUseCase) authentic(in WebhookInput) bool {
	if len(uc.secret) == 0 {
		return false
	}
	if in.PayloadSignature != "" && equalHex(in.PayloadSignature, Sign(uc.secret, in.Body)) {
		return true
	}
	if in.SecretSignature != "" && equalHex(in.SecretSignature, Sign(uc.secret, uc.secret)) {
		return true
	}
	return false
}

// Sign returns the hex HMAC-SHA256 of msg under secret, as the gateway computes it.
func Sign(secret, msg []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func equalHex(got, want string) bool {
	return hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(got))), []byte(want))
}
