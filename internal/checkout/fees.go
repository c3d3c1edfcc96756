package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tastebudhq/storefront-backend/pkg/config"
)

// DeliveryFee derives the fee from the order subtotal and destination
// state. Orders at or above the free-delivery threshold ship free;
// otherwise Lagos addresses get the reduced metro rate.
func DeliveryFee(subtotal decimal.Decimal, state string, cfg config.DeliveryConfig) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(cfg.FreeThreshold) {
		return decimal.Zero
	}
	if strings.Contains(strings.ToLower(state), "lagos") {
		return cfg.LagosFee
	}
	return cfg.DefaultFee
}
