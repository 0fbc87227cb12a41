package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const LoginPath = "/login"

var publicAPIPaths = map[string]struct{}{
	"/api/health":      {},
	"/api/status":      {},
	"/api/config":      {},
	"/api/auth/login":  {},
	"/api/auth/logout": {},
}

// Middleware는 토큰 쌍이 온전하지 않은 /api/ 요청을 백엔드 호출 전에 거절한다.
// 세션 쿠키 뷰가 붙은 뒤에 실행되어야 한다.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		if _, ok := publicAPIPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		if err := s.credentials(r.Context()); err != nil {
			if !errors.Is(err, ErrNotAuthenticated) {
				log.Ctx(r.Context()).Error().Err(err).Msg("failed to read credentials")
			}
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":    "Unauthorized",
		"redirect": LoginPath,
	})
}

type GateConfig struct {
	// Protected의 "/"는 정확히 일치할 때만, 나머지는 접두사로 비교
	Protected []string
	Public    []string
	// HasAccess는 요청에 access 쿠키가 있는지 판단한다
	HasAccess func(r *http.Request) bool
}

func DefaultGateConfig(hasAccess func(r *http.Request) bool) GateConfig {
	return GateConfig{
		Protected: []string{"/", "/orders", "/products", "/users"},
		Public:    []string{LoginPath},
		HasAccess: hasAccess,
	}
}

// Gate는 페이지를 내려주기 전에 access 쿠키 유무로만 경로를 나눈다.
// /api/ 와 정적 파일처럼 어느 목록에도 없는 경로는 그대로 통과한다.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if strings.HasPrefix(path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			hasAccess := cfg.HasAccess(r)

			if matchesAny(path, cfg.Protected) && !hasAccess {
				target := LoginPath + "?" + url.Values{"redirect": {path}}.Encode()
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			if hasAccess && hasAnyPrefix(path, cfg.Public) {
				http.Redirect(w, r, SafeRedirect(r.URL.Query().Get("redirect")), http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchesAny(path string, routes []string) bool {
	for _, route := range routes {
		if route == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, route) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, routes []string) bool {
	for _, route := range routes {
		if strings.HasPrefix(path, route) {
			return true
		}
	}
	return false
}

// SafeRedirect는 같은 출처의 상대 경로만 허용하고 나머지는 "/"로 바꾼다
func SafeRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	if strings.HasPrefix(u.Path, LoginPath) {
		return "/"
	}
	return u.RequestURI()
}
