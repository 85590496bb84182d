package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appadmin "github.com/Zhima-Mochi/minishop-chapa/internal/application/admin"
	appauth "github.com/Zhima-Mochi/minishop-chapa/internal/application/auth"
	appcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/application/catalog"
	appcontent "github.com/Zhima-Mochi/minishop-chapa/internal/application/content"
	apporder "github.com/Zhima-Mochi/minishop-chapa/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-chapa/internal/application/payment"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/passwords"
)

const webhookSecret = "whsec-test"

type stubGateway struct {
	mu      sync.Mutex
	results map[string]*dompay.Verification
}

func (g *stubGateway) Initialize(_ context.Context, req dompay.InitRequest) (*dompay.InitResult, error) {
	return &dompay.InitResult{CheckoutURL: "https://checkout.test/" + req.TxRef}, nil
}

func (g *stubGateway) Verify(_ context.Context, txRef string) (*dompay.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.results[txRef]
	if !ok {
		return nil, dompay.ErrTransactionNotFound
	}
	cp := *v
	return &cp, nil
}

func (g *stubGateway) pay(txRef string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results[txRef] = &dompay.Verification{TxRef: txRef, Status: dompay.GatewaySuccess, Amount: amount, Currency: "ETB", Reference: "chapa-" + txRef}
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, domoutbox.Event) error { return nil }

type testAPI struct {
	t        *testing.T
	router   http.Handler
	gateway  *stubGateway
	products *memory.ProductRepository
	admin    string
	ready    error
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ids := id.NewUUIDGenerator()
	users := memory.NewUserRepository()
	products, categories := memory.NewCatalogRepositories()
	orders := memory.NewOrderRepository()
	payments := memory.NewPaymentRepository()
	gw := &stubGateway{results: make(map[string]*dompay.Verification)}
	pub := discardPublisher{}

	authSvc := appauth.NewService(users, users, passwords.NewBcrypt(bcrypt.MinCost), ids, ids, time.Hour, nil)
	contentSvc := appcontent.NewService(appcontent.Repositories{
		Banners:   memory.NewBannerRepository(),
		Pages:     memory.NewPageRepository(),
		Templates: memory.NewTemplateRepository(),
		Settings:  memory.NewSettingRepository(),
	}, ids, "ETB", nil)
	verify := apppay.NewVerifyPaymentUseCase(payments, orders, products, gw, pub, time.Second, nil)

	api := &testAPI{t: t, gateway: gw, products: products}
	h := NewHandler(Services{
		Auth:        authSvc,
		Catalog:     appcatalog.NewService(products, categories, ids, nil),
		Orders:      apporder.NewService(orders, products, pub, nil),
		CreateOrder: apporder.NewCreateOrderUseCase(orders, products, ids, ids, contentSvc, pub, nil),
		InitiatePayment: apppay.NewInitiatePaymentUseCase(orders, payments, users, gw, ids, ids,
			apppay.URLs{Callback: "https://shop.test/api/payments/webhook", Return: "https://shop.test/orders/{order_id}"},
			time.Second, nil),
		VerifyPayment: verify,
		Webhook:       apppay.NewHandleWebhookUseCase(webhookSecret, verify, nil),
		Payments:      apppay.NewService(payments),
		Content:       contentSvc,
		Admin:         appadmin.NewService(users, products, orders, contentSvc, nil),
	}, Options{
		Metrics: promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
		Ready:   func(context.Context) error { return api.ready },
	}, nil, nil)
	api.router = h.Router()

	_, err := authSvc.CreateAdmin(context.Background(), "Admin", "admin@shop.test", "admin-password")
	require.NoError(t, err)
	api.admin = api.login("admin@shop.test", "admin-password")
	return api
}

func (a *testAPI) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.([]byte); ok {
			buf.Write(raw)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var s sessionView
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &s))
	return s.Token
}

func (a *testAPI) register(name, email string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", registerRequest{Name: name, Email: email, Password: "secret-password"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var s sessionView
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &s))
	return s.Token
}

func (a *testAPI) product(price int64, stock int) productView {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/admin/products", a.admin, productRequest{Name: "Yirgacheffe beans", Price: price, Stock: stock})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var p productView
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/-/live", "", nil, headerRequestID, "req-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(headerRequestID))

	w = api.do(http.MethodGet, "/-/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	api.ready = errors.New("db down")
	w = api.do(http.MethodGet, "/-/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("Abebe Kebede", "abebe@example.com")

	w := api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[userView](t, w)
	assert.Equal(t, "abebe@example.com", me.Email)
	assert.Equal(t, "customer", me.Role)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/me", "bogus", nil).Code)

	w = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "abebe@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/api/auth/register", "", registerRequest{Name: "Again", Email: "ABEBE@example.com", Password: "secret-password"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/auth/register", "", registerRequest{Name: "Short", Email: "short@example.com", Password: "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/auth/register", "", []byte(`{"name":"x","unknown":true}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/api/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/me", token, nil).Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	api := newTestAPI(t)
	customer := api.register("Customer", "customer@example.com")

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/admin/dashboard", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/admin/dashboard", customer, nil).Code)

	w := api.do(http.MethodGet, "/api/admin/dashboard?days=3", api.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[dashboardView](t, w)
	assert.Equal(t, 2, d.Users)
	assert.Len(t, d.Daily, 3)
	assert.Equal(t, 5, d.LowStockThreshold)
}

func TestCheckoutPayAndVerify(t *testing.T) {
	api := newTestAPI(t)
	p := api.product(12050, 5)
	buyer := api.register("Buyer", "buyer@example.com")
	stranger := api.register("Stranger", "stranger@example.com")

	w := api.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price_display":"120.50"`)

	body := createOrderRequest{Items: []orderLineRequest{{ProductID: p.ID, Quantity: 2}}, Phone: "0911000000"}
	w = api.do(http.MethodPost, "/api/orders", buyer, body, headerIdempotencyKey, "checkout-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[orderView](t, w)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, int64(24100), order.Total)
	assert.Equal(t, "241.00", order.TotalDisplay)
	assert.Equal(t, "ETB", order.Currency)

	w = api.do(http.MethodPost, "/api/orders", buyer, body, headerIdempotencyKey, "checkout-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.ID, decode[orderView](t, w).ID)

	stored, err := api.products.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Stock)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/orders/"+order.ID, stranger, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/orders/"+order.ID+"/pay", stranger, nil).Code)

	w = api.do(http.MethodPost, "/api/orders/"+order.ID+"/pay", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pay := decode[payResponse](t, w)
	assert.Equal(t, "https://checkout.test/"+pay.TxRef, pay.CheckoutURL)

	w = api.do(http.MethodGet, "/api/payments/verify/"+pay.TxRef, buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode[verifyView](t, w).PaymentStatus)

	api.gateway.pay(pay.TxRef, order.Total)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/payments/verify/"+pay.TxRef, stranger, nil).Code)

	w = api.do(http.MethodGet, "/api/payments/verify/"+pay.TxRef, buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[verifyView](t, w)
	assert.Equal(t, "success", v.PaymentStatus)
	assert.Equal(t, "paid", v.OrderStatus)

	w = api.do(http.MethodPost, "/api/orders/"+order.ID+"/pay", buyer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = api.do(http.MethodPost, "/api/orders/"+order.ID+"/cancel", buyer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/admin/orders/"+order.ID+"/status", api.admin, statusRequest{Status: "shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shipped", decode[orderView](t, w).Status)

	w = api.do(http.MethodGet, "/api/admin/payments?status=success", api.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), pay.TxRef)
}

func TestCreateOrderRejectsShortStock(t *testing.T) {
	api := newTestAPI(t)
	p := api.product(1000, 1)
	buyer := api.register("Buyer", "buyer@example.com")

	w := api.do(http.MethodPost, "/api/orders", buyer, createOrderRequest{Items: []orderLineRequest{{ProductID: p.ID, Quantity: 3}}})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, p.ID, decode[errorResponse](t, w).ProductID)

	w = api.do(http.MethodPost, "/api/orders", buyer, createOrderRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelReleasesStock(t *testing.T) {
	api := newTestAPI(t)
	p := api.product(1000, 4)
	buyer := api.register("Buyer", "buyer@example.com")

	w := api.do(http.MethodPost, "/api/orders", buyer, createOrderRequest{Items: []orderLineRequest{{ProductID: p.ID, Quantity: 4}}})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[orderView](t, w)

	w = api.do(http.MethodPost, "/api/orders/"+order.ID+"/cancel", buyer, cancelRequest{Reason: "changed my mind"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[orderView](t, w).Status)

	stored, err := api.products.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Stock)

	w = api.do(http.MethodPost, "/api/admin/orders/"+order.ID+"/status", api.admin, statusRequest{Status: "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(http.MethodPost, "/api/admin/orders/"+order.ID+"/status", api.admin, statusRequest{Status: "shipped"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWebhookEndpoint(t *testing.T) {
	api := newTestAPI(t)
	p := api.product(5000, 2)
	buyer := api.register("Buyer", "buyer@example.com")

	w := api.do(http.MethodPost, "/api/orders", buyer, createOrderRequest{Items: []orderLineRequest{{ProductID: p.ID, Quantity: 1}}})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[orderView](t, w)
	w = api.do(http.MethodPost, "/api/orders/"+order.ID+"/pay", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pay := decode[payResponse](t, w)

	body := []byte(`{"event":"charge.success","tx_ref":"` + pay.TxRef + `","status":"success"}`)
	w = api.do(http.MethodPost, "/api/payments/webhook", "", body, headerPayloadSig, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	unknown := []byte(`{"tx_ref":"minishop-unknown"}`)
	w = api.do(http.MethodPost, "/api/payments/webhook", "", unknown,
		headerPayloadSig, apppay.Sign([]byte(webhookSecret), unknown))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")

	// the body claims success but the gateway has not settled yet
	w = api.do(http.MethodPost, "/api/payments/webhook", "", body,
		headerPayloadSig, apppay.Sign([]byte(webhookSecret), body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode[verifyView](t, w).PaymentStatus)

	api.gateway.pay(pay.TxRef, order.Total)
	w = api.do(http.MethodPost, "/api/payments/webhook", "", body,
		headerSecretSignature, apppay.Sign([]byte(webhookSecret), []byte(webhookSecret)))
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[verifyView](t, w)
	assert.Equal(t, "success", v.PaymentStatus)
	assert.Equal(t, "paid", v.OrderStatus)
}

func TestContentEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/admin/pages", api.admin, pageRequest{Slug: "about", Title: "About us", Body: "Hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	page := decode[pageView](t, w)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/pages/about", "", nil).Code)

	w = api.do(http.MethodPut, "/api/admin/pages/"+page.ID, api.admin, pageRequest{Slug: "about", Title: "About us", Body: "Hello", Published: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/pages/about", "", nil).Code)

	w = api.do(http.MethodPost, "/api/admin/banners", api.admin, bannerRequest{Title: "Sale", ImageURL: "https://img.test/sale.png", Active: false})
	require.Equal(t, http.StatusCreated, w.Code)
	w = api.do(http.MethodGet, "/api/banners", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Sale")

	w = api.do(http.MethodPut, "/api/admin/settings/store_name", api.admin, settingRequest{Value: "Addis Coffee", Public: true})
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(http.MethodPut, "/api/admin/settings/low_stock_threshold", api.admin, settingRequest{Value: "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(http.MethodGet, "/api/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Addis Coffee")

	w = api.do(http.MethodPost, "/api/admin/email-templates", api.admin, templateRequest{Name: "broken", Subject: "x", Body: "{{ .Nope "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domuser.ErrInvalidCredentials, http.StatusUnauthorized},
		{domuser.ErrForbidden, http.StatusForbidden},
		{dompay.ErrNotFound, http.StatusNotFound},
		{apporder.ErrValidation, http.StatusBadRequest},
		{&domcatalog.ReservationError{ProductID: "p", Err: domcatalog.ErrInsufficientStock}, http.StatusConflict},
		{&domcatalog.ReservationError{ProductID: "p", Err: domcatalog.ErrNotFound}, http.StatusBadRequest},
		{errors.Join(dompay.ErrGateway, errors.New("timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
