package session

import (
	"context"
	"errors"
	"time"
)

// Kind는 저장되는 자격 증명의 종류
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

const (
	AccessKey  = "admin_access_token"
	RefreshKey = "admin_refresh_token"

	LegacyAccessKey  = "access_token"
	LegacyRefreshKey = "refresh_token"

	// IDCookieName은 브라우저별 KV 네임스페이스를 가리키는 쿠키
	IDCookieName = "admin_sid"
)

var kinds = []Kind{Access, Refresh}

var (
	ErrIncompletePair = errors.New("session: both access and refresh tokens are required")
	ErrPartialPair    = errors.New("session: only one of access and refresh token is stored")
	ErrUnbound        = errors.New("session: no cookie view bound to context")
)

func (k Kind) Key() string {
	if k == Refresh {
		return RefreshKey
	}
	return AccessKey
}

func (k Kind) legacyKey() string {
	if k == Refresh {
		return LegacyRefreshKey
	}
	return LegacyAccessKey
}

type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Complete는 두 토큰이 모두 있을 때만 true
func (p Pair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

func (p Pair) get(k Kind) string {
	if k == Refresh {
		return p.RefreshToken
	}
	return p.AccessToken
}

// KV는 브라우저 네임스페이스 단위의 영속 저장소.
// 값이 없거나 만료된 경우 Get은 빈 문자열을 반환한다.
type KV interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, namespace string, keys ...string) error
	Ping(ctx context.Context) error
}
