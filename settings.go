package fulfill

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPurchaseTemplate is sent to the buyer after a successful delivery.
	DefaultPurchaseTemplate = "Thank you for your purchase!\n\n" +
		"Login details:\nPhone: {phone}\n\n" +
		"To receive a login code, send \"cd {phone}\" in this chat."
	// DefaultCodeTemplate is sent to the buyer with a fetched login code.
	DefaultCodeTemplate = "Your Telegram login code: {code}\n\n" +
		"Thank you for your purchase, please confirm the order here: {order_link}\n\n" +
		"Don't forget to leave a review!"
	// DefaultOrderLinkFormat renders an order reference link from an order id.
	DefaultOrderLinkFormat = "https://funpay.com/orders/%s/"
	// DefaultOrigin is the supply origin allowed by fresh settings.
	DefaultOrigin = "personal"
)

// KnownOrigins lists the supply origins the marketplace accepts, keyed by code.
var KnownOrigins = map[string]string{
	"phishing": "Phishing",
	"stealer":  "Stealer",
	"personal": "Personal",
	"resale":   "Resale",
	"autoreg":  "Auto-registered",
	"samoreg":  "Self-registered",
}

// Region maps a tag prefix to the price band used when searching the marketplace.
type Region struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	MinPrice decimal.Decimal `json:"min_price"`
	MaxPrice decimal.Decimal `json:"max_price"`
}

// Settings is the operator-managed configuration document.
type Settings struct {
	Regions          []Region `json:"regions"`
	Origins          []string `json:"origins"`
	AutoRefund       bool     `json:"auto_refund"`
	Operators        []string `json:"operators"`
	PurchaseTemplate string   `json:"purchase_template"`
	CodeTemplate     string   `json:"code_template"`
	OrderLinkFormat  string   `json:"order_link_format"`
}

// SettingsStore loads and saves the settings document.
type SettingsStore interface {
	// LoadSettings returns the current settings, or defaults when none were saved.
	LoadSettings(ctx context.Context) (Settings, error)
	// SaveSettings replaces the settings document.
	SaveSettings(ctx context.Context, settings Settings) error
}

// DefaultSettings returns the settings used before an operator saves any.
func DefaultSettings() Settings {
	return Settings{
		Regions:          []Region{},
		Origins:          []string{DefaultOrigin},
		AutoRefund:       true,
		Operators:        []string{},
		PurchaseTemplate: DefaultPurchaseTemplate,
		CodeTemplate:     DefaultCodeTemplate,
		OrderLinkFormat:  DefaultOrderLinkFormat,
	}
}

// WithDefaults fills empty fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	defaults := DefaultSettings()
	if s.Regions == nil {
		s.Regions = defaults.Regions
	}
	if len(s.Origins) == 0 {
		s.Origins = defaults.Origins
	}
	if s.Operators == nil {
		s.Operators = defaults.Operators
	}
	if s.PurchaseTemplate == "" {
		s.PurchaseTemplate = defaults.PurchaseTemplate
	}
	if s.CodeTemplate == "" {
		s.CodeTemplate = defaults.CodeTemplate
	}
	if s.OrderLinkFormat == "" {
		s.OrderLinkFormat = defaults.OrderLinkFormat
	}

	return s
}

// Validate checks regions and origins.
func (s Settings) Validate() error {
	for _, region := range s.Regions {
		if region.Code == "" {
			return ErrRegionCodeRequired
		}
		if region.MinPrice.IsNegative() || region.MaxPrice.IsNegative() {
			return fmt.Errorf("%w: %s", ErrInvalidPriceBand, region.Code)
		}
		if region.MinPrice.GreaterThan(region.MaxPrice) {
			return fmt.Errorf("%w: %s", ErrInvalidPriceBand, region.Code)
		}
	}
	if len(s.Origins) == 0 {
		return ErrOriginsRequired
	}
	for _, origin := range s.Origins {
		if _, ok := KnownOrigins[origin]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownOrigin, origin)
		}
	}

	return nil
}

// OrderLink renders the order reference link for orderID.
func (s Settings) OrderLink(orderID string) string {
	format := s.OrderLinkFormat
	if format == "" {
		format = DefaultOrderLinkFormat
	}

	return fmt.Sprintf(format, orderID)
}
