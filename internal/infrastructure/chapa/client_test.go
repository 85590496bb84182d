package chapa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
)

func TestInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/transaction/initialize", r.URL.Path)
		require.Equal(t, "Bearer CHASECK_TEST", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "510.50", body["amount"])
		require.Equal(t, "ETB", body["currency"])
		require.Equal(t, "minishop-1", body["tx_ref"])
		require.Equal(t, "Minishop order", body["customization"].(map[string]any)["title"])

		_, _ = w.Write([]byte(`{"message":"Hosted Link","status":"success","data":{"checkout_url":"https://checkout.chapa.co/checkout/payment/abc"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "CHASECK_TEST", srv.Client())
	res, err := c.Initialize(context.Background(), dompay.InitRequest{
		TxRef: "minishop-1", Amount: 51050, Currency: "ETB", Email: "a@example.com", Title: "Minishop order",
	})
	require.NoError(t, err)
	require.Equal(t, "https://checkout.chapa.co/checkout/payment/abc", res.CheckoutURL)
}

func TestInitializeValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":{"email":["The email must be a valid email address."]},"status":"failed","data":null}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k", nil).Initialize(context.Background(), dompay.InitRequest{TxRef: "minishop-1", Amount: 100, Currency: "ETB"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.Code)
	require.Contains(t, se.Message, "valid email")
}

func TestVerify(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		status   dompay.GatewayStatus
		amount   int64
		currency string
	}{
		{"numeric amount", `{"status":"success","message":"Payment details","data":{"tx_ref":"minishop-1","status":"success","amount":510.5,"currency":"etb","reference":"APabc"}}`, dompay.GatewaySuccess, 51050, "ETB"},
		{"string amount", `{"status":"success","message":"Payment details","data":{"tx_ref":"minishop-1","status":"pending","amount":"100.00","currency":"ETB","reference":""}}`, dompay.GatewayPending, 10000, "ETB"},
		{"failed", `{"status":"success","message":"Payment details","data":{"tx_ref":"minishop-1","status":"failed","amount":"100","currency":"ETB"}}`, dompay.GatewayFailed, 10000, "ETB"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/transaction/verify/minishop-1", r.URL.Path)
				_, _ = w.Write([]byte(tc.payload))
			}))
			defer srv.Close()

			v, err := New(srv.URL, "k", nil).Verify(context.Background(), "minishop-1")
			require.NoError(t, err)
			require.Equal(t, tc.status, v.Status)
			require.Equal(t, tc.amount, v.Amount)
			require.Equal(t, tc.currency, v.Currency)
			require.Equal(t, "minishop-1", v.TxRef)
		})
	}
}

func TestVerifyNotFound(t *testing.T) {
	for _, tc := range []struct {
		code int
		body string
	}{
		{http.StatusNotFound, `{"message":"Transaction not found","status":"failed","data":null}`},
		{http.StatusBadRequest, `{"message":"Invalid transaction or Transaction not found","status":"failed","data":null}`},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := New(srv.URL, "k", nil).Verify(context.Background(), "minishop-1")
		srv.Close()
		require.ErrorIs(t, err, dompay.ErrTransactionNotFound)
	}
}

func TestVerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k", nil).Verify(context.Background(), "minishop-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, dompay.ErrTransactionNotFound)
	require.Contains(t, err.Error(), "upstream down")
}

func TestVerifyRejectsSubMinorAmounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"tx_ref":"minishop-1","status":"success","amount":"1.005","currency":"ETB"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k", nil).Verify(context.Background(), "minishop-1")
	require.Error(t, err)
}
