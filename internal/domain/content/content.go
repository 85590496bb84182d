package content

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"
)

var (
	ErrNotFound        = errors.New("content: not found")
	ErrSlugTaken       = errors.New("content: slug already in use")
	ErrNameTaken       = errors.New("content: name already in use")
	ErrInvalidTitle    = errors.New("content: title is required")
	ErrInvalidImage    = errors.New("content: image url is required")
	ErrInvalidSlug     = errors.New("content: slug must be lower-case letters, digits and dashes")
	ErrInvalidName     = errors.New("content: name is required")
	ErrInvalidTemplate = errors.New("content: template does not parse")
	ErrInvalidKey      = errors.New("content: setting key is required")
)

type Banner struct {
	ID        string
	Title     string
	ImageURL  string
	LinkURL   string
	Position  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewBanner(id, title, imageURL, linkURL string, position int, active bool) (*Banner, error) {
	now := time.Now().UTC()
	b := &Banner{
		ID:        id,
		Title:     strings.TrimSpace(title),
		ImageURL:  strings.TrimSpace(imageURL),
		LinkURL:   strings.TrimSpace(linkURL),
		Position:  position,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return b, b.Validate()
}

func (b *Banner) Validate() error {
	if b.Title == "" {
		return ErrInvalidTitle
	}
	if b.ImageURL == "" {
		return ErrInvalidImage
	}
	return nil
}

func (b *Banner) Clone() *Banner {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Page struct {
	ID        string
	Slug      string
	Title     string
	Body      string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPage(id, slug, title, body string, published bool) (*Page, error) {
	now := time.Now().UTC()
	p := &Page{
		ID:        id,
		Slug:      strings.TrimSpace(slug),
		Title:     strings.TrimSpace(title),
		Body:      body,
		Published: published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return p, p.Validate()
}

func (p *Page) Validate() error {
	if !slugPattern.MatchString(p.Slug) {
		return ErrInvalidSlug
	}
	if p.Title == "" {
		return ErrInvalidTitle
	}
	return nil
}

func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Well-known email template names, one per order notification.
const (
	TemplateOrderPlaced        = "order_placed"
	TemplateOrderPaid          = "order_paid"
	TemplateOrderPaymentFailed = "order_payment_failed"
	TemplateOrderCancelled     = "order_cancelled"
)

// EmailTemplate holds text/template sources for the subject and body of a notification.
type EmailTemplate struct {
	ID        string
	Name      string
	Subject   string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewEmailTemplate(id, name, subject, body string) (*EmailTemplate, error) {
	now := time.Now().UTC()
	t := &EmailTemplate{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Subject:   subject,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return t, t.Validate()
}

func (t *EmailTemplate) Validate() error {
	if t.Name == "" {
		return ErrInvalidName
	}
	if _, err := template.New("subject").Parse(t.Subject); err != nil {
		return fmt.Errorf("%w: subject: %v", ErrInvalidTemplate, err)
	}
	if _, err := template.New("body").Parse(t.Body); err != nil {
		return fmt.Errorf("%w: body: %v", ErrInvalidTemplate, err)
	}
	return nil
}

// Render executes subject and body against data.
func (t *EmailTemplate) Render(data any) (subject, body string, err error) {
	subject, err = execute("subject", t.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err = execute("body", t.Body, data)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(subject), body, nil
}

func execute(name, src string, data any) (string, error) {
	tpl, err := template.New(name).Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("content: render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (t *EmailTemplate) Clone() *EmailTemplate {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Well-known setting keys.
const (
	SettingStoreName         = "store_name"
	SettingCurrency          = "currency"
	SettingLowStockThreshold = "low_stock_threshold"
	SettingSupportEmail      = "support_email"
)

const DefaultLowStockThreshold = 5

type Setting struct {
	Key       string
	Value     string
	Public    bool
	UpdatedAt time.Time
}

func NewSetting(key, value string, public bool) (*Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}
	return &Setting{Key: key, Value: value, Public: public, UpdatedAt: time.Now().UTC()}, nil
}

func (s *Setting) Clone() *Setting {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
