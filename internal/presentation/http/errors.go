package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	appcontent "github.com/Zhima-Mochi/minishop-chapa/internal/application/content"
	apporder "github.com/Zhima-Mochi/minishop-chapa/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-chapa/internal/application/payment"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domcontent "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability/logctx"
)

var errBadRequest = errors.New("invalid request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type errorResponse struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return badRequest("body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err onto a status code. Internal failures are logged and
// reported without detail.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	var rerr *domcatalog.ReservationError
	if errors.As(err, &rerr) {
		body.ProductID = rerr.ProductID
	}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logctx.FromOr(ctx, observability.NopLogger()).Error("http_internal_error",
			observability.F("error", err.Error()),
		)
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	var rerr *domcatalog.ReservationError
	if errors.As(err, &rerr) {
		if errors.Is(rerr.Err, domcatalog.ErrInsufficientStock) || errors.Is(rerr.Err, domcatalog.ErrInactive) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	}

	switch {
	case isAny(err, errBadRequest,
		apporder.ErrValidation, apppay.ErrValidation, appcontent.ErrInvalidSetting,
		domuser.ErrInvalidEmail, domuser.ErrInvalidName, domuser.ErrWeakPassword, domuser.ErrInvalidRole,
		domcatalog.ErrInvalidQuantity, domcatalog.ErrInvalidPrice, domcatalog.ErrInvalidStock, domcatalog.ErrInvalidName,
		domorder.ErrEmpty, domorder.ErrInvalidQuantity, domorder.ErrInvalidAmount,
		dompay.ErrInvalidAmount,
		domcontent.ErrInvalidTitle, domcontent.ErrInvalidImage, domcontent.ErrInvalidSlug,
		domcontent.ErrInvalidName, domcontent.ErrInvalidTemplate, domcontent.ErrInvalidKey):
		return http.StatusBadRequest
	case isAny(err, domuser.ErrInvalidCredentials, domuser.ErrUnauthenticated, domuser.ErrSessionExpired,
		apppay.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domuser.ErrForbidden):
		return http.StatusForbidden
	case isAny(err, domuser.ErrNotFound, domcatalog.ErrNotFound, domcatalog.ErrCategoryNotFound,
		domorder.ErrNotFound, dompay.ErrNotFound, domcontent.ErrNotFound):
		return http.StatusNotFound
	case isAny(err, domuser.ErrEmailTaken, domcatalog.ErrSlugTaken, domcatalog.ErrCategoryInUse,
		domcatalog.ErrInsufficientStock, domcatalog.ErrInactive,
		domorder.ErrConflict, domorder.ErrInvalidStateTransition, domorder.ErrNotCancellable,
		apppay.ErrOrderNotPayable, dompay.ErrConflict, dompay.ErrInvalidStateTransition,
		domcontent.ErrSlugTaken, domcontent.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, dompay.ErrGateway):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
