package content

import (
	"context"
	"errors"
	"strconv"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
)

const itemsBlock = `{{range .Items}}  - {{.Name}} x{{.Quantity}}: {{.Subtotal}} {{$.Currency}}
{{end}}`

var defaultTemplates = []TemplateInput{
	{
		Name:    domain.TemplateOrderPlaced,
		Subject: `{{.StoreName}}: order {{.OrderID}} received`,
		Body: `Hi {{.CustomerName}},

We received your order {{.OrderID}}.

` + itemsBlock + `
Total: {{.Total}} {{.Currency}}

Complete the payment to confirm it. Reference: {{.TxRef}}
`,
	},
	{
		Name:    domain.TemplateOrderPaid,
		Subject: `{{.StoreName}}: payment received for order {{.OrderID}}`,
		Body: `Hi {{.CustomerName}},

Thank you, we received {{.Total}} {{.Currency}} for order {{.OrderID}}.

` + itemsBlock + `
We will let you know once it ships.
`,
	},
	{
		Name:    domain.TemplateOrderPaymentFailed,
		Subject: `{{.StoreName}}: payment for order {{.OrderID}} failed`,
		Body: `Hi {{.CustomerName}},

The payment for order {{.OrderID}} did not go through ({{.Reason}}).
You can try again from your order page.
{{if .SupportEmail}}
Questions? Write to {{.SupportEmail}}.
{{end}}`,
	},
	{
		Name:    domain.TemplateOrderCancelled,
		Subject: `{{.StoreName}}: order {{.OrderID}} cancelled`,
		Body: `Hi {{.CustomerName}},

Order {{.OrderID}} was cancelled ({{.Reason}}).
{{if .SupportEmail}}
Questions? Write to {{.SupportEmail}}.
{{end}}`,
	},
}

// SeedDefaults stores the default settings and notification templates that do
// not exist yet. Existing values are left alone.
func (s *Service) SeedDefaults(ctx context.Context, storeName string) error {
	if storeName == "" {
		storeName = "Minishop"
	}
	settings := []struct {
		key, value string
		public     bool
	}{
		{domain.SettingStoreName, storeName, true},
		{domain.SettingCurrency, s.defaultCurrency, true},
		{domain.SettingLowStockThreshold, strconv.Itoa(domain.DefaultLowStockThreshold), false},
		{domain.SettingSupportEmail, "", true},
	}
	for _, st := range settings {
		_, err := s.repos.Settings.Get(ctx, st.key)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return wrapRepo(err)
		}
		if _, err := s.UpsertSetting(ctx, st.key, st.value, st.public); err != nil {
			return err
		}
	}

	for _, t := range defaultTemplates {
		_, err := s.repos.Templates.GetByName(ctx, t.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return wrapRepo(err)
		}
		if _, err := s.CreateTemplate(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
