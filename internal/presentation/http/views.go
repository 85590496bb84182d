package httppresentation

import (
	"time"

	appadmin "github.com/Zhima-Mochi/minishop-chapa/internal/application/admin"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domcontent "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/pkg/money"
)

// Amounts travel as integer minor units; the *_display fields carry the
// two-decimal form for humans.

type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u *domuser.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

type sessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

type categoryView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

func toCategoryView(c *domcatalog.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description}
}

type productView struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"category_id,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        int64     `json:"price"`
	PriceDisplay string    `json:"price_display"`
	Stock        int       `json:"stock"`
	ImageURL     string    `json:"image_url,omitempty"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toProductView(p *domcatalog.Product) productView {
	return productView{
		ID: p.ID, CategoryID: p.CategoryID, Name: p.Name, Description: p.Description,
		Price: p.Price, PriceDisplay: money.Format(p.Price), Stock: p.Stock,
		ImageURL: p.ImageURL, Active: p.Active, UpdatedAt: p.UpdatedAt,
	}
}

func toProductViews(ps []*domcatalog.Product) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductView(p))
	}
	return out
}

type pageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type itemView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type orderView struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	Items           []itemView `json:"items"`
	Total           int64      `json:"total"`
	TotalDisplay    string     `json:"total_display"`
	Currency        string     `json:"currency"`
	TxRef           string     `json:"tx_ref"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	ShippingAddress string     `json:"shipping_address,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toOrderView(o *domorder.Order) orderView {
	items := make([]itemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemView{
			ProductID: it.ProductID, Name: it.Name, UnitPrice: it.UnitPrice,
			Quantity: it.Quantity, Subtotal: it.Subtotal,
		})
	}
	return orderView{
		ID: o.ID, UserID: o.UserID, Status: string(o.Status), Items: items,
		Total: o.Total, TotalDisplay: money.Format(o.Total), Currency: o.Currency,
		TxRef: o.TxRef, FailureReason: o.FailureReason,
		ShippingAddress: o.ShippingAddress, Phone: o.Phone,
		CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

func toOrderViews(os []*domorder.Order) []orderView {
	out := make([]orderView, 0, len(os))
	for _, o := range os {
		out = append(out, toOrderView(o))
	}
	return out
}

type paymentView struct {
	ID               string     `json:"id"`
	OrderID          string     `json:"order_id"`
	UserID           string     `json:"user_id"`
	TxRef            string     `json:"tx_ref"`
	Amount           int64      `json:"amount"`
	AmountDisplay    string     `json:"amount_display"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	CheckoutURL      string     `json:"checkout_url,omitempty"`
	GatewayReference string     `json:"gateway_reference,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	Attempts         int        `json:"attempts"`
	LastCheckedAt    *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toPaymentView(p *dompay.Payment) paymentView {
	v := paymentView{
		ID: p.ID, OrderID: p.OrderID, UserID: p.UserID, TxRef: p.TxRef,
		Amount: p.Amount, AmountDisplay: money.Format(p.Amount), Currency: p.Currency,
		Status: string(p.Status), CheckoutURL: p.CheckoutURL, GatewayReference: p.GatewayReference,
		FailureReason: p.FailureReason, Attempts: p.Attempts, CreatedAt: p.CreatedAt,
	}
	if !p.LastCheckedAt.IsZero() {
		t := p.LastCheckedAt
		v.LastCheckedAt = &t
	}
	return v
}

type verifyView struct {
	TxRef         string `json:"tx_ref"`
	PaymentStatus string `json:"payment_status"`
	OrderID       string `json:"order_id"`
	OrderStatus   string `json:"order_status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type bannerView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	LinkURL  string `json:"link_url,omitempty"`
	Position int    `json:"position"`
	Active   bool   `json:"active"`
}

func toBannerView(b *domcontent.Banner) bannerView {
	return bannerView{ID: b.ID, Title: b.Title, ImageURL: b.ImageURL, LinkURL: b.LinkURL, Position: b.Position, Active: b.Active}
}

type pageView struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPageView(p *domcontent.Page) pageView {
	return pageView{ID: p.ID, Slug: p.Slug, Title: p.Title, Body: p.Body, Published: p.Published, UpdatedAt: p.UpdatedAt}
}

type templateView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTemplateView(t *domcontent.EmailTemplate) templateView {
	return templateView{ID: t.ID, Name: t.Name, Subject: t.Subject, Body: t.Body, UpdatedAt: t.UpdatedAt}
}

type settingView struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Public bool   `json:"public"`
}

type dailyView struct {
	Day     string `json:"day"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

type dashboardView struct {
	Users             int            `json:"users"`
	Products          int            `json:"products"`
	Orders            int            `json:"orders"`
	CountsByStatus    map[string]int `json:"counts_by_status"`
	Revenue           int64          `json:"revenue"`
	RevenueDisplay    string         `json:"revenue_display"`
	Daily             []dailyView    `json:"daily"`
	RecentOrders      []orderView    `json:"recent_orders"`
	LowStock          []productView  `json:"low_stock"`
	LowStockThreshold int            `json:"low_stock_threshold"`
}

func toDashboardView(d *appadmin.Dashboard) dashboardView {
	counts := make(map[string]int, len(d.CountsByStatus))
	for s, n := range d.CountsByStatus {
		counts[string(s)] = n
	}
	daily := make([]dailyView, 0, len(d.Daily))
	for _, s := range d.Daily {
		daily = append(daily, dailyView{Day: s.Day.Format("2006-01-02"), Orders: s.Orders, Revenue: s.Revenue})
	}
	return dashboardView{
		Users: d.Users, Products: d.Products, Orders: d.Orders,
		CountsByStatus: counts, Revenue: d.Revenue, RevenueDisplay: money.Format(d.Revenue),
		Daily: daily, RecentOrders: toOrderViews(d.RecentOrders),
		LowStock: toProductViews(d.LowStock), LowStockThreshold: d.LowStockThreshold,
	}
}
