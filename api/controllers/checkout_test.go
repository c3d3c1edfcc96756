package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastebudhq/storefront-backend/api/middleware"
	checkoutsvc "github.com/tastebudhq/storefront-backend/internal/checkout"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/tastebudhq/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	input  checkoutsvc.PlaceOrderInput
	result *checkoutsvc.PlaceOrderResult
	err    error
}

func (s *stubCheckoutService) PlaceOrder(_ context.Context, _ uuid.UUID, input checkoutsvc.PlaceOrderInput) (*checkoutsvc.PlaceOrderResult, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func TestCheckoutPlaceOrderReturns201(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.PlaceOrderResult{
		OrderID:       uuid.New(),
		Subtotal:      decimal.NewFromInt(9400),
		DeliveryFee:   decimal.NewFromInt(1500),
		TotalAmount:   decimal.NewFromInt(10900),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
	}}
	handler := CheckoutPlaceOrder(svc, nil)

	body := `{
		"payment_method": "CASH",
		"delivery_address": {
			"street": "14 Adeola Odeku St",
			"city": "Victoria Island",
			"state": "Lagos",
			"zip_code": "101241",
			"country": "NG"
		}
	}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout/place-order", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.PaymentMethod != enums.PaymentMethodCash {
		t.Fatalf("expected CASH forwarded, got %s", svc.input.PaymentMethod)
	}

	var payload struct {
		Data struct {
			TotalAmount string `json:"total_amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.TotalAmount != "10900" {
		t.Fatalf("expected total 10900, got %s", payload.Data.TotalAmount)
	}
}

func TestCheckoutPlaceOrderRejectsMissingAddress(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := CheckoutPlaceOrder(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout/place-order", `{"payment_method":"CASH"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutPlaceOrderMapsDomainErrors(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
	handler := CheckoutPlaceOrder(svc, nil)

	body := `{
		"payment_method": "CASH",
		"delivery_address": {
			"street": "14 Adeola Odeku St",
			"city": "Victoria Island",
			"state": "Lagos",
			"zip_code": "101241",
			"country": "NG"
		}
	}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout/place-order", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected EMPTY_CART code, got %s", payload.Error.Code)
	}
}

func TestCheckoutPlaceOrderRequiresUserContext(t *testing.T) {
	handler := CheckoutPlaceOrder(&stubCheckoutService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/place-order", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
