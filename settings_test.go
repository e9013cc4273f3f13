package fulfill

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()
	if !settings.AutoRefund {
		t.Fatalf("expected auto refund enabled by default")
	}
	if len(settings.Origins) != 1 || settings.Origins[0] != DefaultOrigin {
		t.Fatalf("unexpected default origins %v", settings.Origins)
	}
	if err := settings.Validate(); err != nil {
		t.Fatalf("default settings must validate: %v", err)
	}
	if !strings.Contains(settings.PurchaseTemplate, "{phone}") {
		t.Fatalf("purchase template must reference the phone")
	}
}

func TestSettingsWithDefaultsKeepsValues(t *testing.T) {
	settings := Settings{CodeTemplate: "custom {code}", Origins: []string{"autoreg"}}.WithDefaults()
	if settings.CodeTemplate != "custom {code}" {
		t.Fatalf("custom code template overwritten")
	}
	if settings.Origins[0] != "autoreg" {
		t.Fatalf("custom origins overwritten")
	}
	if settings.PurchaseTemplate != DefaultPurchaseTemplate {
		t.Fatalf("expected default purchase template")
	}
}

func TestSettingsValidate(t *testing.T) {
	cases := []struct {
		name     string
		settings Settings
		want     error
	}{
		{
			name:     "empty code",
			settings: Settings{Regions: []Region{{MinPrice: dec("1"), MaxPrice: dec("2")}}, Origins: []string{"personal"}},
			want:     ErrRegionCodeRequired,
		},
		{
			name:     "inverted band",
			settings: Settings{Regions: []Region{{Code: "ID", MinPrice: dec("5"), MaxPrice: dec("2")}}, Origins: []string{"personal"}},
			want:     ErrInvalidPriceBand,
		},
		{
			name:     "unknown origin",
			settings: Settings{Origins: []string{"stolen"}},
			want:     ErrUnknownOrigin,
		},
		{
			name:     "no origins",
			settings: Settings{},
			want:     ErrOriginsRequired,
		},
	}

	for _, tc := range cases {
		if err := tc.settings.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestOrderLink(t *testing.T) {
	if got := DefaultSettings().OrderLink("501"); got != "https://funpay.com/orders/501/" {
		t.Fatalf("unexpected link %q", got)
	}
	if got := (Settings{}).OrderLink("7"); got != "https://funpay.com/orders/7/" {
		t.Fatalf("unexpected fallback link %q", got)
	}
}

func TestOrderValidate(t *testing.T) {
	valid := Order{ID: "1", Buyer: "alice", Quantity: 1, Amount: dec("10")}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid order: %v", err)
	}

	cases := []struct {
		order Order
		want  error
	}{
		{order: Order{Buyer: "alice", Quantity: 1}, want: ErrOrderIDRequired},
		{order: Order{ID: "1", Quantity: 1}, want: ErrBuyerRequired},
		{order: Order{ID: "1", Buyer: "alice"}, want: ErrInvalidQuantity},
		{order: Order{ID: "1", Buyer: "alice", Quantity: 1, Amount: dec("-1")}, want: ErrInvalidAmount},
	}
	for _, tc := range cases {
		if err := tc.order.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, err)
		}
	}
}
