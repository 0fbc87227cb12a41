package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taeu.kr/storeadmin/internal/backend"
	"taeu.kr/storeadmin/internal/session"
)

// memTokens는 한 브라우저의 저장소를 흉내 내는 메모리 TokenStore
type memTokens struct {
	mu      sync.Mutex
	pair    session.Pair
	writes  int
	clears  int
	failSet error
}

func newMemTokens(access, refresh string) *memTokens {
	return &memTokens{pair: session.Pair{AccessToken: access, RefreshToken: refresh}}
}

func (m *memTokens) Read(_ context.Context, kind session.Kind) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == session.Refresh {
		return m.pair.RefreshToken, nil
	}
	return m.pair.AccessToken, nil
}

func (m *memTokens) Write(_ context.Context, pair session.Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.pair = pair
	m.writes++
	return nil
}

func (m *memTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = session.Pair{}
	m.clears++
	return nil
}

func (m *memTokens) snapshot() (session.Pair, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair, m.writes, m.clears
}

func (m *memTokens) reset(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = session.Pair{AccessToken: access, RefreshToken: refresh}
}

// fakeBackend는 validToken만 받아들이고 /auth/refresh로 토큰을 교체한다
type fakeBackend struct {
	mu         sync.Mutex
	validToken string
	nextPair   session.Pair

	refreshCalls   atomic.Int32
	refreshStatus  int
	refreshBody    string
	refreshDelay   time.Duration
	refreshGate    chan struct{}
	refreshBearers []string
	refreshTokens  []string

	seen []seenRequest
}

type seenRequest struct {
	Method string
	Path   string
	Bearer string
	Body   string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()

	fb := &fakeBackend{
		validToken: "new-access",
		nextPair:   session.Pair{AccessToken: "new-access", RefreshToken: "new-refresh"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", fb.handleRefresh)
	mux.HandleFunc("/", fb.handleResource)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) record(r *http.Request) seenRequest {
	body, _ := io.ReadAll(r.Body)
	s := seenRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Bearer: strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
		Body:   string(body),
	}
	fb.mu.Lock()
	fb.seen = append(fb.seen, s)
	fb.mu.Unlock()
	return s
}

// configure는 요청 처리와 경합하지 않도록 잠금 상태에서 설정을 바꾼다
func (fb *fakeBackend) configure(fn func(fb *fakeBackend)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fn(fb)
}

func (fb *fakeBackend) requests() []seenRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]seenRequest(nil), fb.seen...)
}

func (fb *fakeBackend) refreshLog() (tokens, bearers []string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.refreshTokens...), append([]string(nil), fb.refreshBearers...)
}

func (fb *fakeBackend) handleResource(w http.ResponseWriter, r *http.Request) {
	s := fb.record(r)

	fb.mu.Lock()
	valid := fb.validToken
	fb.mu.Unlock()

	if s.Bearer != valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path, "body": s.Body})
}

func (fb *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	fb.refreshCalls.Add(1)

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	fb.mu.Lock()
	fb.refreshBearers = append(fb.refreshBearers, r.Header.Get("Authorization"))
	fb.refreshTokens = append(fb.refreshTokens, body.RefreshToken)
	status, raw, delay, gate, pair := fb.refreshStatus, fb.refreshBody, fb.refreshDelay, fb.refreshGate, fb.nextPair
	fb.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-time.After(5 * time.Second):
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	switch {
	case status != 0:
		writeJSON(w, status, map[string]string{"message": "refresh rejected"})
	case raw != "":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(raw))
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type signOuts struct {
	mu      sync.Mutex
	reasons []string
}

func (s *signOuts) record(_ context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
}

func (s *signOuts) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reasons)
}

func newTestClient(srv *httptest.Server, tokens *memTokens, signOut *signOuts) *backend.Client {
	return backend.New(backend.Config{
		BaseURL:        srv.URL,
		HTTPClient:     srv.Client(),
		Tokens:         tokens,
		RefreshTimeout: time.Second,
		OnSignOut:      signOut.record,
	})
}
