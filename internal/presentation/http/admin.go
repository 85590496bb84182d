package httppresentation

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/application/catalog"
	appcontent "github.com/Zhima-Mochi/minishop-chapa/internal/application/content"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
)

func (h *Handler) adminRoutes(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)

	r.Get("/categories", h.handleListCategories)
	r.Post("/categories", h.handleCreateCategory)
	r.Put("/categories/{id}", h.handleUpdateCategory)
	r.Delete("/categories/{id}", h.handleDeleteCategory)

	r.Get("/products", h.handleAdminListProducts)
	r.Post("/products", h.handleCreateProduct)
	r.Get("/products/{id}", h.handleAdminGetProduct)
	r.Put("/products/{id}", h.handleUpdateProduct)
	r.Delete("/products/{id}", h.handleDeleteProduct)
	r.Post("/products/{id}/stock", h.handleAdjustStock)

	r.Get("/orders", h.handleAdminListOrders)
	r.Get("/orders/{id}", h.handleGetOrder)
	r.Post("/orders/{id}/status", h.handleUpdateOrderStatus)

	r.Get("/users", h.handleListUsers)
	r.Post("/users/{id}/role", h.handleSetRole)

	r.Get("/payments", h.handleListPayments)

	r.Get("/banners", h.handleAdminListBanners)
	r.Post("/banners", h.handleCreateBanner)
	r.Put("/banners/{id}", h.handleUpdateBanner)
	r.Delete("/banners/{id}", h.handleDeleteBanner)

	r.Get("/pages", h.handleListPages)
	r.Post("/pages", h.handleCreatePage)
	r.Get("/pages/{id}", h.handleGetPage)
	r.Put("/pages/{id}", h.handleUpdatePage)
	r.Delete("/pages/{id}", h.handleDeletePage)

	r.Get("/email-templates", h.handleListTemplates)
	r.Post("/email-templates", h.handleCreateTemplate)
	r.Get("/email-templates/{id}", h.handleGetTemplate)
	r.Put("/email-templates/{id}", h.handleUpdateTemplate)
	r.Delete("/email-templates/{id}", h.handleDeleteTemplate)

	r.Get("/settings", h.handleAdminListSettings)
	r.Put("/settings/{key}", h.handleUpsertSetting)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	d, err := h.svc.Admin.Dashboard(r.Context(), days)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardView(d))
}

// Categories and products.

type categoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (req categoryRequest) input() appcatalog.CategoryInput {
	return appcatalog.CategoryInput{Name: req.Name, Slug: req.Slug, Description: req.Description}
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	c, err := h.svc.Catalog.CreateCategory(r.Context(), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryView(c))
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	c, err := h.svc.Catalog.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryView(c))
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url"`
	Active      *bool  `json:"active"`
}

func (req productRequest) input() appcatalog.ProductInput {
	return appcatalog.ProductInput{
		CategoryID: req.CategoryID, Name: req.Name, Description: req.Description,
		Price: req.Price, Stock: req.Stock, ImageURL: req.ImageURL, Active: req.Active,
	}
}

func (h *Handler) handleAdminListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, r.URL.Query().Get("active") == "true")
}

func (h *Handler) handleAdminGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	p, err := h.svc.Catalog.CreateProduct(r.Context(), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductView(p))
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	p, err := h.svc.Catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stockRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	p, err := h.svc.Catalog.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

// Orders, users and payments.

func (h *Handler) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	f := domorder.Filter{UserID: r.URL.Query().Get("user_id"), Page: page, Limit: limit}
	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := domorder.ParseStatus(s)
		if !ok {
			writeError(r.Context(), w, badRequest("unknown status %q", s))
			return
		}
		f.Status = status
	}
	f = f.Normalize()
	orders, total, err := h.svc.Orders.ListAll(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": toOrderViews(orders),
		"meta":   pageMeta{Total: total, Page: f.Page, Limit: f.Limit},
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	status, ok := domorder.ParseStatus(req.Status)
	if !ok {
		writeError(r.Context(), w, badRequest("unknown status %q", req.Status))
		return
	}
	o, err := h.svc.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Auth.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	u, err := h.svc.Auth.SetRole(r.Context(), chi.URLParam(r, "id"), domuser.Role(req.Role))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	f := dompay.Filter{Status: dompay.Status(r.URL.Query().Get("status")), Page: page, Limit: limit}.Normalize()
	payments, total, err := h.svc.Payments.List(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payments": out,
		"meta":     pageMeta{Total: total, Page: f.Page, Limit: f.Limit},
	})
}

// Content.

type bannerRequest struct {
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	LinkURL  string `json:"link_url"`
	Position int    `json:"position"`
	Active   bool   `json:"active"`
}

func (req bannerRequest) input() appcontent.BannerInput {
	return appcontent.BannerInput{Title: req.Title, ImageURL: req.ImageURL, LinkURL: req.LinkURL, Position: req.Position, Active: req.Active}
}

func (h *Handler) handleAdminListBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, false)
}

func (h *Handler) handleCreateBanner(w http.ResponseWriter, r *http.Request) {
	var req bannerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	b, err := h.svc.Content.CreateBanner(r.Context(), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBannerView(b))
}

func (h *Handler) handleUpdateBanner(w http.ResponseWriter, r *http.Request) {
	var req bannerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	b, err := h.svc.Content.UpdateBanner(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBannerView(b))
}

func (h *Handler) handleDeleteBanner(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Content.DeleteBanner(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pageRequest struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

func (req pageRequest) input() appcontent.PageInput {
	return appcontent.PageInput{Slug: req.Slug, Title: req.Title, Body: req.Body, Published: req.Published}
}

func (h *Handler) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.Content.ListPages(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]pageView, 0, len(pages))
	for _, p := range pages {
		out = append(out, toPageView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": out})
}

func (h *Handler) handleGetPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Content.GetPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageView(p))
}

func (h *Handler) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	p, err := h.svc.Content.CreatePage(r.Context(), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPageView(p))
}

func (h *Handler) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	p, err := h.svc.Content.UpdatePage(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageView(p))
}

func (h *Handler) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Content.DeletePage(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type templateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (req templateRequest) input() appcontent.TemplateInput {
	return appcontent.TemplateInput{Name: req.Name, Subject: req.Subject, Body: req.Body}
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := h.svc.Content.ListTemplates(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]templateView, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, toTemplateView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"email_templates": out})
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Content.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateView(t))
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	t, err := h.svc.Content.CreateTemplate(r.Context(), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateView(t))
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	t, err := h.svc.Content.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateView(t))
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Content.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdminListSettings(w http.ResponseWriter, r *http.Request) {
	h.listSettings(w, r, false)
}

type settingRequest struct {
	Value  string `json:"value"`
	Public bool   `json:"public"`
}

func (h *Handler) handleUpsertSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s, err := h.svc.Content.UpsertSetting(r.Context(), chi.URLParam(r, "key"), req.Value, req.Public)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingView{Key: s.Key, Value: s.Value, Public: s.Public})
}
