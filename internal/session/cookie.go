package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const idCookieTTL = 365 * 24 * time.Hour

type cookieViewKey struct{}

// cookieView는 요청 쿠키 위에 같은 요청 중 기록한 쿠키를 겹쳐 보여준다
type cookieView struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	r       *http.Request
	secure  bool
	written map[string]*http.Cookie
	// closed 이후의 기록은 응답에 쓰지 않는다
	closed bool
}

// NewContext는 요청과 응답에 묶인 쿠키 뷰를 ctx에 붙인다
func NewContext(ctx context.Context, w http.ResponseWriter, r *http.Request, secure bool) context.Context {
	return context.WithValue(ctx, cookieViewKey{}, &cookieView{
		w:       w,
		r:       r,
		secure:  secure || r.TLS != nil,
		written: map[string]*http.Cookie{},
	})
}

func viewFrom(ctx context.Context) *cookieView {
	v, _ := ctx.Value(cookieViewKey{}).(*cookieView)
	return v
}

func (v *cookieView) get(name string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.getLocked(name)
}

func (v *cookieView) getLocked(name string) string {
	if c, ok := v.written[name]; ok {
		if c.MaxAge < 0 {
			return ""
		}
		return c.Value
	}
	c, err := v.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (v *cookieView) set(name, value string, expires time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   v.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func (v *cookieView) expire(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   v.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func (v *cookieView) setLocked(c *http.Cookie) {
	if v.closed {
		return
	}
	v.written[c.Name] = c
	http.SetCookie(v.w, c)
}

// close는 핸들러가 끝난 뒤 늦게 도착한 쿠키 기록을 막는다
func (v *cookieView) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

// sid는 현재 세션 id. 없으면 빈 문자열
func (v *cookieView) sid() string {
	id := v.get(IDCookieName)
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

func (v *cookieView) ensureSID(now time.Time) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id := v.getLocked(IDCookieName); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	id := uuid.NewString()
	v.setLocked(&http.Cookie{
		Name:     IDCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   v.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(idCookieTTL),
	})
	return id
}
