package controllers

import (
	"net/http"
	"strings"

	"github.com/tastebudhq/storefront-backend/api/responses"
	"github.com/tastebudhq/storefront-backend/api/validators"
	ordersvc "github.com/tastebudhq/storefront-backend/internal/orders"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/pagination"
)

type adminSetStatusRequest struct {
	Status             string  `json:"status" validate:"required"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

type adminOrderSummary struct {
	orderResponse
	IsUserDeleted bool `json:"is_user_deleted"`
}

// AdminOrderList pages over every order, soft-deleted ones included.
func AdminOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := ordersvc.AdminListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.OrderStatus(strings.ToUpper(raw))
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			status := enums.PaymentStatus(strings.ToUpper(raw))
			filters.PaymentStatus = &status
		}

		list, err := svc.AdminList(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders := make([]adminOrderSummary, 0, len(list.Orders))
		for _, row := range list.Orders {
			orders = append(orders, adminOrderSummary{
				orderResponse: orderFromModel(row),
				IsUserDeleted: row.IsUserDeleted,
			})
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":      orders,
			"next_cursor": list.NextCursor,
		})
	}
}

func AdminOrderSetStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuidURLParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminSetStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason := payload.CancellationReason
		if reason != nil {
			clean := validators.SanitizeString(*reason, 500)
			reason = &clean
		}
		order, err := svc.AdminSetStatus(r.Context(), adminID, orderID, ordersvc.AdminStatusUpdate{
			Status:             enums.OrderStatus(strings.ToUpper(strings.TrimSpace(payload.Status))),
			CancellationReason: reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderFromModel(*order))
	}
}

func AdminOrderConfirmPayment(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuidURLParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdminConfirmPayment(r.Context(), adminID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderFromModel(*order))
	}
}
