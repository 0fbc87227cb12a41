package auth

import (
	"errors"
	"fmt"

	"taeu.kr/storeadmin/internal/backend"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAdmin           = errors.New("access restricted to administrators")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrMissingTokens      = errors.New("login response did not include tokens")

	// ErrPartialSession은 토큰 하나만 남은 경우. 남은 쪽도 지운 뒤 돌려준다.
	ErrPartialSession = fmt.Errorf("%w: only one credential was stored", ErrNotAuthenticated)
)

// Session은 대시보드에서 인증된 사용자 상태
type Session struct {
	User *backend.User `json:"user"`
}

// IsAuthenticated는 사용자가 있고 ADMIN일 때만 true
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User != nil && s.User.Role == backend.RoleAdmin
}
