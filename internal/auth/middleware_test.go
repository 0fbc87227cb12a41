package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"taeu.kr/storeadmin/internal/auth"
	"taeu.kr/storeadmin/internal/session"
)

func hasAccessCookie(r *http.Request) bool {
	c, err := r.Cookie(session.AccessKey)
	return err == nil && c.Value != ""
}

func executeGateRequest(t *testing.T, target string, withAccess bool) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	called := false
	gate := auth.Gate(auth.DefaultGateConfig(hasAccessCookie))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if withAccess {
		req.AddCookie(&http.Cookie{Name: session.AccessKey, Value: "a1"})
	}
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	return rec, called
}

func TestGate_RedirectsProtectedWithoutAccess(t *testing.T) {
	testCases := []struct {
		path         string
		wantLocation string
	}{
		{path: "/", wantLocation: "/login?redirect=%2F"},
		{path: "/orders", wantLocation: "/login?redirect=%2Forders"},
		{path: "/products/42", wantLocation: "/login?redirect=%2Fproducts%2F42"},
		{path: "/users", wantLocation: "/login?redirect=%2Fusers"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			rec, called := executeGateRequest(t, tc.path, false)

			if called {
				t.Fatal("expected protected page not to be served")
			}
			if rec.Code != http.StatusFound {
				t.Fatalf("expected status %d, got %d", http.StatusFound, rec.Code)
			}
			if location := rec.Header().Get("Location"); location != tc.wantLocation {
				t.Fatalf("expected location %q, got %q", tc.wantLocation, location)
			}
		})
	}
}

func TestGate_RedirectsExtraProtectedPaths(t *testing.T) {
	cfg := auth.DefaultGateConfig(hasAccessCookie)
	cfg.Protected = append(cfg.Protected, "/statistics")

	called := false
	gate := auth.Gate(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statistics/daily", nil))

	if called {
		t.Fatal("expected statistics page not to be served")
	}
	if location := rec.Header().Get("Location"); location != "/login?redirect=%2Fstatistics%2Fdaily" {
		t.Fatalf("unexpected location %q", location)
	}
}

func TestGate_AllowsProtectedWithAccess(t *testing.T) {
	rec, called := executeGateRequest(t, "/orders", true)

	if !called {
		t.Fatal("expected next handler to be called")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestGate_RedirectsLoginAwayWhenSignedIn(t *testing.T) {
	testCases := []struct {
		target       string
		wantLocation string
	}{
		{target: "/login", wantLocation: "/"},
		{target: "/login?redirect=/orders", wantLocation: "/orders"},
		{target: "/login?redirect=/products%3Fpage%3D2", wantLocation: "/products?page=2"},
		{target: "/login?redirect=https://evil.example", wantLocation: "/"},
		{target: "/login?redirect=//evil.example", wantLocation: "/"},
		{target: "/login?redirect=/login", wantLocation: "/"},
	}

	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			rec, called := executeGateRequest(t, tc.target, true)

			if called {
				t.Fatal("expected login page not to be served")
			}
			if location := rec.Header().Get("Location"); location != tc.wantLocation {
				t.Fatalf("expected location %q, got %q", tc.wantLocation, location)
			}
		})
	}
}

func TestGate_PassesThroughOtherPaths(t *testing.T) {
	testCases := []struct {
		target     string
		withAccess bool
	}{
		{target: "/login", withAccess: false},
		{target: "/api/orders", withAccess: false},
		{target: "/assets/app.js", withAccess: false},
		{target: "/favicon.ico", withAccess: true},
		{target: "/statistics", withAccess: false},
	}

	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			rec, called := executeGateRequest(t, tc.target, tc.withAccess)

			if !called {
				t.Fatal("expected request to pass through")
			}
			if rec.Code != http.StatusNoContent {
				t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
			}
		})
	}
}

func TestMiddleware_AllowsPublicAPIWithoutToken(t *testing.T) {
	authSvc, tokens, _ := setupAuthTestService(t)

	called := false
	handler := tokens.Bind(authSvc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if !called {
		t.Fatal("expected next handler to be called for public path")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestMiddleware_DeniesAPIWithoutCredentials(t *testing.T) {
	authSvc, tokens, _ := setupAuthTestService(t)

	handler := tokens.Bind(authSvc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestMiddleware_SignsOutAPIWithRefreshTokenOnly(t *testing.T) {
	authSvc, tokens, _ := setupAuthTestService(t)

	called := false
	handler := tokens.Bind(authSvc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: session.RefreshKey, Value: "r1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Fatal("expected request to stop before the handler")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	expired := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.RefreshKey && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Fatal("expected refresh cookie to be expired")
	}
}

func TestMiddleware_AllowsAPIWhenPairIsInStore(t *testing.T) {
	authSvc, tokens, _ := setupAuthTestService(t)

	ctx, seeded := boundContext()
	if err := tokens.Write(ctx, session.Pair{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("write pair: %v", err)
	}
	var sid *http.Cookie
	for _, c := range seeded.Result().Cookies() {
		if c.Name == session.IDCookieName {
			sid = c
		}
	}
	if sid == nil {
		t.Fatal("expected session id cookie")
	}

	handler := tokens.Bind(authSvc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	// access 쿠키는 만료됐지만 KV에는 쌍이 남아 있다
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: session.IDCookieName, Value: sid.Value})
	req.AddCookie(&http.Cookie{Name: session.RefreshKey, Value: "r1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}
