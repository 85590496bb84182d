package httppresentation

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appauth "github.com/Zhima-Mochi/minishop-chapa/internal/application/auth"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domcontent "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := h.svc.Auth.Register(r.Context(), appauth.RegisterInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Password: req.Password,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView{Token: res.Token, ExpiresAt: res.ExpiresAt, User: toUserView(res.User)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView{Token: res.Token, ExpiresAt: res.ExpiresAt, User: toUserView(res.User)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserView(currentUser(r)))
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (h *Handler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Catalog.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryView(c))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	page, limit := paging(r)
	q := r.URL.Query()
	res, err := h.svc.Catalog.ListProducts(r.Context(), domcatalog.ProductFilter{
		CategoryID: q.Get("category_id"),
		Query:      strings.TrimSpace(q.Get("q")),
		ActiveOnly: activeOnly,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": toProductViews(res.Items),
		"meta":     pageMeta{Total: res.Total, Page: res.Page, Limit: res.Limit},
	})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, true)
}

// handleGetProduct hides inactive products from the storefront.
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err == nil && !p.Active {
		err = domcatalog.ErrNotFound
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (h *Handler) handlePublicBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, true)
}

func (h *Handler) listBanners(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	banners, err := h.svc.Content.ListBanners(r.Context(), activeOnly)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]bannerView, 0, len(banners))
	for _, b := range banners {
		out = append(out, toBannerView(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"banners": out})
}

func (h *Handler) handlePublicPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Content.PublishedPage(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageView(p))
}

func (h *Handler) handlePublicSettings(w http.ResponseWriter, r *http.Request) {
	h.listSettings(w, r, true)
}

func (h *Handler) listSettings(w http.ResponseWriter, r *http.Request, publicOnly bool) {
	settings, err := h.svc.Content.ListSettings(r.Context(), publicOnly)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": toSettingViews(settings)})
}

func toSettingViews(settings []*domcontent.Setting) []settingView {
	out := make([]settingView, 0, len(settings))
	for _, s := range settings {
		out = append(out, settingView{Key: s.Key, Value: s.Value, Public: s.Public})
	}
	return out
}
