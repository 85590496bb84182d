// Package chapa is the HTTP client for the Chapa hosted checkout API.
package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-chapa/internal/pkg/money"
)

const DefaultBaseURL = "https://api.chapa.co"

const maxErrorBody = 4 << 10

type Client struct {
	Base   string
	Secret string
	HTTP   *http.Client
}

func New(base, secret string, hc *http.Client) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), Secret: secret, HTTP: hc}
}

type initializeReq struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
	Customization struct {
		Title       string `json:"title,omitempty"`
		Description string `json:"description,omitempty"`
	} `json:"customization"`
}

type envelope struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

// message flattens the API's message field, which is a string or a field->errors object.
func (e envelope) message() string {
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(e.Message))
}

func (c *Client) Initialize(ctx context.Context, in dompay.InitRequest) (*dompay.InitResult, error) {
	body := initializeReq{
		Amount:      money.Format(in.Amount),
		Currency:    in.Currency,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		TxRef:       in.TxRef,
		CallbackURL: in.CallbackURL,
		ReturnURL:   in.ReturnURL,
	}
	body.Customization.Title = in.Title
	body.Customization.Description = in.Description

	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/v1/transaction/initialize", body, &data); err != nil {
		return nil, fmt.Errorf("chapa: initialize %s: %w", in.TxRef, err)
	}
	if data.CheckoutURL == "" {
		return nil, fmt.Errorf("chapa: initialize %s: response without checkout_url", in.TxRef)
	}
	return &dompay.InitResult{CheckoutURL: data.CheckoutURL}, nil
}

type verifyData struct {
	TxRef     string          `json:"tx_ref"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reference string          `json:"reference"`
}

func (c *Client) Verify(ctx context.Context, txRef string) (*dompay.Verification, error) {
	var data *verifyData
	status, err := c.do(ctx, http.MethodGet, "/v1/transaction/verify/"+url.PathEscape(txRef), nil, &data)
	if err != nil {
		if isNotFound(status, err) {
			return nil, dompay.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("chapa: verify %s: %w", txRef, err)
	}
	if data == nil {
		return nil, dompay.ErrTransactionNotFound
	}
	amount, err := money.FromDecimal(data.Amount)
	if err != nil {
		return nil, fmt.Errorf("chapa: verify %s: %w", txRef, err)
	}
	ref := data.TxRef
	if ref == "" {
		ref = txRef
	}
	return &dompay.Verification{
		TxRef:     ref,
		Status:    mapStatus(data.Status),
		Amount:    amount,
		Currency:  strings.ToUpper(data.Currency),
		Reference: data.Reference,
	}, nil
}

func mapStatus(s string) dompay.GatewayStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "successful", "completed":
		return dompay.GatewaySuccess
	case "failed", "failure", "cancelled", "canceled", "reversed":
		return dompay.GatewayFailed
	default:
		return dompay.GatewayPending
	}
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status=%d message=%s", e.Code, e.Message)
}

func isNotFound(status int, err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	if status == http.StatusNotFound {
		return true
	}
	msg := strings.ToLower(se.Message)
	return status == http.StatusBadRequest && (strings.Contains(msg, "not found") || strings.Contains(msg, "invalid transaction"))
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Secret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode/100 != 2 {
		msg := env.message()
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(truncate(raw, maxErrorBody)))
		}
		return resp.StatusCode, &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", decodeErr)
	}
	if !strings.EqualFold(env.Status, "success") {
		return resp.StatusCode, &StatusError{Code: resp.StatusCode, Message: env.message()}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode data: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
