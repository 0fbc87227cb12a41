package session

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/hlog"
)

const (
	DefaultAccessTTL  = time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Secure는 TLS 종단이 프록시에 있을 때 쿠키에 Secure를 강제
	Secure bool
	Now    func() time.Time
}

// Store는 자격 증명 쌍을 쿠키와 KV 두 곳에 보관한다
type Store struct {
	kv   KV
	opts Options
}

func NewStore(kv KV, opts Options) *Store {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{kv: kv, opts: opts}
}

// Bind는 요청마다 쿠키 뷰를 붙이고 이전 키 이름을 이전한다.
// 정적 파일 요청에서는 이전을 건너뛴다.
func (s *Store) Bind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(r.Context(), w, r, s.opts.Secure)
		defer viewFrom(ctx).close()

		if !isAsset(r.URL.Path) {
			if migrated, err := s.MigrateLegacy(ctx); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("legacy token migration failed")
			} else if migrated {
				hlog.FromRequest(r).Info().Msg("legacy tokens migrated")
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isAsset은 /api/ 밖에서 확장자가 있는 경로를 정적 파일로 본다
func isAsset(p string) bool {
	if strings.HasPrefix(p, "/api/") {
		return false
	}
	return path.Ext(p) != ""
}

// Read는 쿠키를 먼저, 없으면 KV를 조회한다
func (s *Store) Read(ctx context.Context, kind Kind) (string, error) {
	v := viewFrom(ctx)
	if v == nil {
		return "", nil
	}
	if value := v.get(kind.Key()); value != "" {
		return value, nil
	}
	sid := v.sid()
	if sid == "" {
		return "", nil
	}
	return s.kv.Get(ctx, sid, kind.Key())
}

// HasCookie는 KV를 보지 않고 쿠키 사본만 확인한다
func (s *Store) HasCookie(ctx context.Context, kind Kind) bool {
	v := viewFrom(ctx)
	return v != nil && v.get(kind.Key()) != ""
}

func (s *Store) Write(ctx context.Context, pair Pair) error {
	if !pair.Complete() {
		return ErrIncompletePair
	}
	v := viewFrom(ctx)
	if v == nil {
		return ErrUnbound
	}

	sid := v.ensureSID(s.opts.Now())
	for _, kind := range kinds {
		if err := s.put(ctx, v, sid, kind, pair.get(kind)); err != nil {
			return err
		}
	}
	return nil
}

// Clear는 두 저장소에서 자격 증명을 지운다. 여러 번 호출해도 안전하다.
func (s *Store) Clear(ctx context.Context) error {
	v := viewFrom(ctx)
	if v == nil {
		return nil
	}
	for _, kind := range kinds {
		v.expire(kind.Key())
	}
	sid := v.sid()
	if sid == "" {
		return nil
	}
	if err := s.kv.Delete(ctx, sid, AccessKey, RefreshKey); err != nil {
		return fmt.Errorf("delete stored tokens: %w", err)
	}
	return nil
}

// Pair는 두 토큰을 함께 읽는다. 하나만 있으면 ErrPartialPair.
func (s *Store) Pair(ctx context.Context) (Pair, error) {
	access, err := s.Read(ctx, Access)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.Read(ctx, Refresh)
	if err != nil {
		return Pair{}, err
	}

	pair := Pair{AccessToken: access, RefreshToken: refresh}
	if (access == "") != (refresh == "") {
		return pair, ErrPartialPair
	}
	return pair, nil
}

// MigrateLegacy는 access_token, refresh_token 키를 현재 이름으로 옮긴다.
// 이전 키가 없으면 아무것도 하지 않는다.
func (s *Store) MigrateLegacy(ctx context.Context) (bool, error) {
	v := viewFrom(ctx)
	if v == nil {
		return false, nil
	}

	migrated := false
	for _, kind := range kinds {
		legacy := kind.legacyKey()
		inCookie := v.get(legacy)

		var stored string
		if sid := v.sid(); sid != "" {
			var err error
			if stored, err = s.kv.Get(ctx, sid, legacy); err != nil {
				return migrated, err
			}
		}

		value := stored
		if value == "" {
			value = inCookie
		}
		if value == "" {
			continue
		}

		sid := v.ensureSID(s.opts.Now())
		if err := s.put(ctx, v, sid, kind, value); err != nil {
			return migrated, err
		}
		if inCookie != "" {
			v.expire(legacy)
		}
		if stored != "" {
			if err := s.kv.Delete(ctx, sid, legacy); err != nil {
				return migrated, err
			}
		}
		migrated = true
	}
	return migrated, nil
}

func (s *Store) put(ctx context.Context, v *cookieView, sid string, kind Kind, value string) error {
	now := s.opts.Now()

	expires := now.Add(s.opts.RefreshTTL)
	if kind == Access {
		expires = s.accessExpiry(value, now)
	}
	v.set(kind.Key(), value, expires)

	if err := s.kv.Set(ctx, sid, kind.Key(), value, s.opts.RefreshTTL); err != nil {
		return fmt.Errorf("store %s token: %w", kind, err)
	}
	return nil
}

// accessExpiry는 JWT exp가 있으면 그 시각, 없으면 AccessTTL 뒤를 쓴다
func (s *Store) accessExpiry(token string, now time.Time) time.Time {
	fallback := now.Add(s.opts.AccessTTL)

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fallback
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		return fallback
	}
	return claims.ExpiresAt.Time
}
