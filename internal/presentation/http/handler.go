package httppresentation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appadmin "github.com/Zhima-Mochi/minishop-chapa/internal/application/admin"
	appauth "github.com/Zhima-Mochi/minishop-chapa/internal/application/auth"
	appcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/application/catalog"
	appcontent "github.com/Zhima-Mochi/minishop-chapa/internal/application/content"
	apporder "github.com/Zhima-Mochi/minishop-chapa/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-chapa/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	defaultMaxBodyBytes  = 1 << 20
	readinessTimeout     = 2 * time.Second
)

// Services are the application entry points the HTTP API exposes.
type Services struct {
	Auth            *appauth.Service
	Catalog         *appcatalog.Service
	Orders          *apporder.Service
	CreateOrder     *apporder.CreateOrderUseCase
	InitiatePayment *apppay.InitiatePaymentUseCase
	VerifyPayment   *apppay.VerifyPaymentUseCase
	Webhook         *apppay.HandleWebhookUseCase
	Payments        *apppay.Service
	Content         *appcontent.Service
	Admin           *appadmin.Service
}

type Options struct {
	MaxBodyBytes int64
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Ready reports backing store health for /-/ready.
	Ready func(ctx context.Context) error
}

type Handler struct {
	svc  Services
	opts Options
	log  observability.Logger
	tel  observability.Observability
}

func NewHandler(svc Services, opts Options, logger observability.Logger, tel observability.Observability) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{
		svc:  svc,
		opts: opts,
		log:  logger.With(observability.F("component", componentHTTPHandler)),
		tel:  tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.log, h.tel))
	r.Use(h.limitBody)

	r.Get("/-/live", h.handleLive)
	r.Get("/-/ready", h.handleReady)
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.handleRegister)
			r.Post("/login", h.handleLogin)
			r.Post("/logout", h.handleLogout)
			r.With(h.requireUser).Get("/me", h.handleMe)
		})

		r.Get("/categories", h.handleListCategories)
		r.Get("/categories/{id}", h.handleGetCategory)
		r.Get("/products", h.handleListProducts)
		r.Get("/products/{id}", h.handleGetProduct)
		r.Get("/banners", h.handlePublicBanners)
		r.Get("/pages/{slug}", h.handlePublicPage)
		r.Get("/settings", h.handlePublicSettings)

		r.Group(func(r chi.Router) {
			r.Use(h.requireUser)
			r.Post("/orders", h.handleCreateOrder)
			r.Get("/orders", h.handleListMyOrders)
			r.Get("/orders/{id}", h.handleGetOrder)
			r.Post("/orders/{id}/cancel", h.handleCancelOrder)
			r.Post("/orders/{id}/pay", h.handlePayOrder)
			r.Get("/payments/verify/{txRef}", h.handleVerifyPayment)
		})
		r.Post("/payments/webhook", h.handleWebhook)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireUser, h.requireAdmin)
			h.adminRoutes(r)
		})
	})
	return r
}

func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.opts.Ready(ctx); err != nil {
			h.log.Warn("readiness_failed", observability.F("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "not ready"})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// paging reads ?page= and ?limit=; invalid values fall back to defaults.
func paging(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
