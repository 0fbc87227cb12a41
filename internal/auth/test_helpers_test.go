package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"taeu.kr/storeadmin/internal/auth"
	"taeu.kr/storeadmin/internal/backend"
	"taeu.kr/storeadmin/internal/platform/database"
	"taeu.kr/storeadmin/internal/session"
	"taeu.kr/storeadmin/internal/session/store"
)

const (
	testAdminEmail    = "admin@shop.test"
	testAdminPassword = "admin-test-password"
	testUserEmail     = "member@shop.test"
	testUserPassword  = "member-test-password"
)

// fakeShop은 로그인, 프로필, 갱신만 구현한 백엔드
type fakeShop struct {
	mu            sync.Mutex
	profileStatus int
	profileCalls  int
}

func (f *fakeShop) users() map[string]backend.User {
	return map[string]backend.User{
		testAdminEmail: {ID: "u-1", Email: testAdminEmail, Name: "Admin Tester", Role: backend.RoleAdmin},
		testUserEmail:  {ID: "u-2", Email: testUserEmail, Name: "Member Tester", Role: backend.RoleUser},
	}
}

func (f *fakeShop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		var creds backend.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		passwords := map[string]string{testAdminEmail: testAdminPassword, testUserEmail: testUserPassword}
		if passwords[creds.Email] == "" || passwords[creds.Email] != creds.Password {
			writeShopJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeShopJSON(w, http.StatusOK, backend.LoginResponse{
			AccessToken:  "access:" + creds.Email,
			RefreshToken: "refresh:" + creds.Email,
			User:         f.users()[creds.Email],
		})
	case "/auth/profile":
		f.mu.Lock()
		f.profileCalls++
		status := f.profileStatus
		f.mu.Unlock()
		if status != 0 {
			writeShopJSON(w, status, map[string]string{"message": "profile unavailable"})
			return
		}
		email := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer access:")
		user, ok := f.users()[email]
		if !ok {
			writeShopJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		writeShopJSON(w, http.StatusOK, user)
	case "/auth/refresh":
		writeShopJSON(w, http.StatusUnauthorized, map[string]string{"message": "Refresh token expired"})
	default:
		http.NotFound(w, r)
	}
}

func writeShopJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setupAuthTestService(t *testing.T) (*auth.Service, *session.Store, *fakeShop) {
	t.Helper()

	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	shop := &fakeShop{}
	srv := httptest.NewServer(shop)
	t.Cleanup(srv.Close)

	tokens := session.NewStore(store.NewSQLite(db), session.Options{})
	client := backend.New(backend.Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Tokens:     tokens,
	})

	return auth.NewService(client, tokens), tokens, shop
}

// boundContext는 쿠키가 담긴 요청에 묶인 ctx를 만든다
func boundContext(cookies ...*http.Cookie) (context.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	return session.NewContext(req.Context(), rec, req, false), rec
}
