package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taeu.kr/storeadmin/internal/backend"
	"taeu.kr/storeadmin/internal/platform/web"
)

func TestFromBackend(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		wantCode     int
		wantMessage  string
		wantRedirect string
	}{
		{
			name:         "session ended",
			err:          fmt.Errorf("%w: %w", backend.ErrSessionEnded, &backend.Error{Status: 401, Message: "Unauthorized"}),
			wantCode:     http.StatusUnauthorized,
			wantMessage:  "Session expired",
			wantRedirect: "/login",
		},
		{
			name:        "backend domain error passes through",
			err:         &backend.Error{Status: http.StatusConflict, Message: "Product has active orders"},
			wantCode:    http.StatusConflict,
			wantMessage: "Product has active orders",
		},
		{
			name:        "transient refresh failure",
			err:         &backend.RefreshError{Err: errors.New("connection refused")},
			wantCode:    http.StatusServiceUnavailable,
			wantMessage: "Authentication service unavailable",
		},
		{
			name:        "timeout",
			err:         fmt.Errorf("backend: GET /products: %w", context.DeadlineExceeded),
			wantCode:    http.StatusGatewayTimeout,
			wantMessage: "Failed to load products",
		},
		{
			name:        "network failure",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    http.StatusBadGateway,
			wantMessage: "Failed to load products",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := web.FromBackend(tc.err, "Failed to load products")
			if got.Code != tc.wantCode {
				t.Fatalf("expected code %d, got %d", tc.wantCode, got.Code)
			}
			if got.Message != tc.wantMessage {
				t.Fatalf("expected message %q, got %q", tc.wantMessage, got.Message)
			}
			if got.Redirect != tc.wantRedirect {
				t.Fatalf("expected redirect %q, got %q", tc.wantRedirect, got.Redirect)
			}
		})
	}

	if web.FromBackend(nil, "x") != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestHandler_WritesErrorBody(t *testing.T) {
	h := web.Handler(func(w http.ResponseWriter, r *http.Request) *web.Error {
		return &web.Error{Code: http.StatusUnauthorized, Message: "Session expired", Redirect: "/login"}
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Session expired" || body["redirect"] != "/login" {
		t.Fatalf("unexpected body: %v", body)
	}
}

type productInput struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
}

func TestDecode_ReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"price":-1}`))

	var in productInput
	err := web.Decode(req, &in)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if err.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", err.Code)
	}
	want := []string{"name: is required", "price: must be at least 0"}
	if strings.Join(err.Fields, ",") != strings.Join(want, ",") {
		t.Fatalf("expected fields %v, got %v", want, err.Fields)
	}
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{`))

	var in productInput
	if err := web.Decode(req, &in); err == nil || err.Message != "Invalid request body" {
		t.Fatalf("expected invalid body error, got %v", err)
	}
}
