package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apporder "github.com/Zhima-Mochi/minishop-chapa/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-chapa/internal/application/payment"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability/logctx"
)

const (
	headerIdempotencyKey  = "Idempotency-Key"
	headerPayloadSig      = "x-chapa-signature"
	headerSecretSignature = "chapa-signature"
)

type orderLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items           []orderLineRequest `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	Phone           string             `json:"phone"`
	IdempotencyKey  string             `json:"idempotency_key"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}
	lines := make([]apporder.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, apporder.LineInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	res, err := h.svc.CreateOrder.Execute(r.Context(), apporder.CreateOrderInput{
		IdempotencyKey:  key,
		UserID:          currentUser(r).ID,
		Items:           lines,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, toOrderView(res.Order))
}

func (h *Handler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	f := domorder.Filter{Page: page, Limit: limit}.Normalize()
	orders, total, err := h.svc.Orders.ListMine(r.Context(), currentUser(r).ID, f.Page, f.Limit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": toOrderViews(orders),
		"meta":   pageMeta{Total: total, Page: f.Page, Limit: f.Limit},
	})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	o, err := h.svc.Orders.Cancel(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type payResponse struct {
	PaymentID   string `json:"payment_id"`
	TxRef       string `json:"tx_ref"`
	CheckoutURL string `json:"checkout_url"`
	Reused      bool   `json:"reused"`
}

func (h *Handler) handlePayOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.InitiatePayment.Execute(r.Context(), apppay.InitiatePaymentInput{
		UserID:  currentUser(r).ID,
		OrderID: chi.URLParam(r, "id"),
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, payResponse{
		PaymentID: res.PaymentID, TxRef: res.TxRef, CheckoutURL: res.CheckoutURL, Reused: res.Reused,
	})
}

// handleVerifyPayment lets the buyer (or an admin) force a gateway check after
// returning from checkout. Foreign transactions look missing.
func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	txRef := chi.URLParam(r, "txRef")
	p, err := h.svc.Payments.GetByTxRef(r.Context(), txRef)
	if err == nil {
		if u := currentUser(r); !u.IsAdmin() && p.UserID != u.ID {
			err = dompay.ErrNotFound
		}
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := h.svc.VerifyPayment.Execute(r.Context(), apppay.VerifyPaymentInput{
		TxRef:   txRef,
		Trigger: apppay.TriggerManual,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerifyView(res))
}

// handleWebhook acknowledges authentic callbacks for unknown transactions with
// 200 so the gateway stops retrying; gateway errors return 502 so it retries.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(r.Context(), w, badRequest("body: %v", err))
		return
	}
	res, err := h.svc.Webhook.Execute(r.Context(), apppay.WebhookInput{
		Body:             body,
		PayloadSignature: r.Header.Get(headerPayloadSig),
		SecretSignature:  r.Header.Get(headerSecretSignature),
	})
	switch {
	case errors.Is(err, dompay.ErrNotFound):
		logctx.FromOr(r.Context(), h.log).Warn("webhook_unknown_tx_ref")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	case err != nil:
		writeError(r.Context(), w, err)
		return
	}
	logctx.FromOr(r.Context(), h.log).Info("webhook_processed",
		observability.F("tx_ref", res.Payment.TxRef),
		observability.F("payment_status", string(res.Payment.Status)),
	)
	writeJSON(w, http.StatusOK, toVerifyView(res))
}

func toVerifyView(res *apppay.VerifyPaymentResult) verifyView {
	v := verifyView{
		TxRef:         res.Payment.TxRef,
		PaymentStatus: string(res.Payment.Status),
		OrderID:       res.Payment.OrderID,
		FailureReason: res.Payment.FailureReason,
	}
	if res.Order != nil {
		v.OrderStatus = string(res.Order.Status)
	}
	return v
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("body: %v", err)
	}
	return nil
}
