package controllers

import (
	"net/http"

	"github.com/tastebudhq/storefront-backend/api/responses"
	"github.com/tastebudhq/storefront-backend/api/validators"
	checkoutsvc "github.com/tastebudhq/storefront-backend/internal/checkout"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/types"
)

type placeOrderRequest struct {
	PaymentMethod    string        `json:"payment_method" validate:"required"`
	PaymentReference *string       `json:"payment_reference,omitempty"`
	DeliveryAddress  types.Address `json:"delivery_address" validate:"required"`
	Notes            *string       `json:"notes,omitempty"`
}

// CheckoutPlaceOrder converts the caller's cart into an order.
func CheckoutPlaceOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(r.Context(), userID, checkoutsvc.PlaceOrderInput{
			PaymentMethod:    enums.PaymentMethod(payload.PaymentMethod),
			PaymentReference: payload.PaymentReference,
			DeliveryAddress:  payload.DeliveryAddress,
			Notes:            payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
