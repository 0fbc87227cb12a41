package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"taeu.kr/storeadmin/internal/backend"
	"taeu.kr/storeadmin/internal/session"
)

// Gateway는 로그인 흐름에 필요한 백엔드 호출
type Gateway interface {
	Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResponse, error)
	Profile(ctx context.Context) (*backend.User, error)
}

// TokenStore는 게이트웨이 저장소에 쌍 단위 조회를 더한 것
type TokenStore interface {
	backend.TokenStore
	Pair(ctx context.Context) (session.Pair, error)
}

type Service struct {
	gateway Gateway
	tokens  TokenStore
}

func NewService(gateway Gateway, tokens TokenStore) *Service {
	return &Service{
		gateway: gateway,
		tokens:  tokens,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := s.gateway.Login(ctx, backend.Credentials{Email: email, Password: password})
	if err != nil {
		if backend.IsStatus(err, http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}

	pair := session.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if !pair.Complete() {
		return nil, ErrMissingTokens
	}
	if err := s.tokens.Write(ctx, pair); err != nil {
		return nil, err
	}

	if resp.User.Role != backend.RoleAdmin {
		s.clear(ctx)
		return nil, ErrNotAdmin
	}

	user := resp.User
	return &Session{User: &user}, nil
}

// Check는 프로필을 조회해 세션을 확정한다. 실패하거나 ADMIN이 아니면 자격 증명을 지운다.
func (s *Service) Check(ctx context.Context) (*Session, error) {
	if err := s.credentials(ctx); err != nil {
		return nil, err
	}

	user, err := s.gateway.Profile(ctx)
	if err != nil {
		if !errors.Is(err, backend.ErrSessionEnded) {
			s.clear(ctx)
		}
		return nil, err
	}
	if user.Role != backend.RoleAdmin {
		s.clear(ctx)
		return nil, ErrNotAdmin
	}
	return &Session{User: user}, nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.tokens.Clear(ctx)
}

// credentials는 저장된 토큰 쌍이 온전한지 확인한다. 한쪽만 있으면 세션을 끝낸다.
func (s *Service) credentials(ctx context.Context) error {
	pair, err := s.tokens.Pair(ctx)
	switch {
	case errors.Is(err, session.ErrPartialPair):
		log.Ctx(ctx).Info().Msg("only one credential stored, signing out")
		s.clear(ctx)
		return ErrPartialSession
	case err != nil:
		return err
	case pair.AccessToken == "" && pair.RefreshToken == "":
		return ErrNotAuthenticated
	}
	return nil
}

func (s *Service) clear(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to clear credentials")
	}
}
