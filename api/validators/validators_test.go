package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/tastebudhq/storefront-backend/pkg/errors"
)

type addItemBody struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

func TestDecodeJSONBodyValidInput(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":"p-1","quantity":3}`))
	var body addItemBody
	if err := DecodeJSONBody(r, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ProductID != "p-1" || body.Quantity != 3 {
		t.Fatalf("decoded = %+v", body)
	}
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":"p-1","quantity":-2}`))
	var body addItemBody
	err := DecodeJSONBody(r, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("details = %T", typed.Details())
	}
	if details["quantity"] != "must be greater than 0" {
		t.Fatalf("quantity detail = %q", details["quantity"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":"p-1","quantity":1,"discount":99}`))
	var body addItemBody
	err := DecodeJSONBody(r, &body)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsEmptyBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(""))
	var body addItemBody
	err := DecodeJSONBody(r, &body)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsTrailingDocument(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":"p-1","quantity":1}{"product_id":"p-2"}`))
	var body addItemBody
	err := DecodeJSONBody(r, &body)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		want    int
		wantErr bool
	}{
		{"absent uses default", "/api/v1/orders", 20, false},
		{"in range", "/api/v1/orders?limit=50", 50, false},
		{"not numeric", "/api/v1/orders?limit=abc", 0, true},
		{"below min", "/api/v1/orders?limit=0", 0, true},
		{"above max", "/api/v1/orders?limit=500", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tc.url, nil)
			got, err := ParseQueryInt(r, "limit", 20, 1, 100)
			if tc.wantErr {
				if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  changed my mind\x00\x07  ", 500); got != "changed my mind" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeString("out of stock at the Lekki branch", 12); got != "out of stock" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeString("line one\nline two", 0); got != "line one\nline two" {
		t.Fatalf("newlines must survive, got %q", got)
	}
}
