package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastebudhq/storefront-backend/api/responses"
	ordersvc "github.com/tastebudhq/storefront-backend/internal/orders"
	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/types"
)

type orderItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage *string         `json:"product_image,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

type orderResponse struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	DeliveryFee        decimal.Decimal     `json:"delivery_fee"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	PaymentReference   *string             `json:"payment_reference,omitempty"`
	DeliveryAddress    types.Address       `json:"delivery_address"`
	Notes              *string             `json:"notes,omitempty"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	Items              []orderItemResponse `json:"items,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

func orderFromModel(order models.Order) orderResponse {
	resp := orderResponse{
		ID:                 order.ID,
		UserID:             order.UserID,
		Subtotal:           order.Subtotal,
		DeliveryFee:        order.DeliveryFee,
		TotalAmount:        order.TotalAmount,
		Status:             order.Status,
		PaymentMethod:      order.PaymentMethod,
		PaymentStatus:      order.PaymentStatus,
		PaymentReference:   order.PaymentReference,
		DeliveryAddress:    order.DeliveryAddress,
		Notes:              order.Notes,
		CancellationReason: order.CancellationReason,
		CreatedAt:          order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Price:        item.Price,
			Quantity:     item.Quantity,
		})
	}
	return resp
}

// OrderList returns the caller's orders, newest first.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders := make([]orderResponse, 0, len(rows))
		for _, row := range rows {
			orders = append(orders, orderFromModel(row))
		}
		responses.WriteSuccess(w, map[string]any{"orders": orders})
	}
}

func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuidURLParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderFromModel(*order))
	}
}

// OrderMarkPaid records the customer's settlement claim for offline
// payment methods.
func OrderMarkPaid(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuidURLParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkPaid(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderFromModel(*order))
	}
}

func OrderClearHistory(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ClearHistory(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
