package checkout

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tastebudhq/storefront-backend/pkg/config"
)

func feeConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		FreeThreshold: decimal.NewFromInt(50000),
		LagosFee:      decimal.NewFromInt(1500),
		DefaultFee:    decimal.NewFromInt(3500),
	}
}

func TestDeliveryFee(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		subtotal string
		state    string
		want     string
	}{
		{"below threshold outside lagos", "49999", "Abuja", "3500"},
		{"at threshold ships free", "50000", "Abuja", "0"},
		{"above threshold ships free", "120000", "Lagos", "0"},
		{"lagos lowercase", "10000", "lagos", "1500"},
		{"lagos uppercase", "10000", "LAGOS", "1500"},
		{"lagos substring", "10000", "Lagos State", "1500"},
		{"empty state falls back to default", "10000", "", "3500"},
		{"boundary just below threshold in lagos", "49999", "Lagos", "1500"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := DeliveryFee(decimal.RequireFromString(tc.subtotal), tc.state, feeConfig())
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected fee %s, got %s", tc.want, got)
			}
		})
	}
}
