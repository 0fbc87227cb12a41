package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taeu.kr/storeadmin/internal/session"
)

// settlement는 끝난 갱신 결과. 소비된 refresh 토큰을 키로 잠시 보관한다.
type settlement struct {
	pair session.Pair
	at   time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// recoverAccess는 401을 받은 요청이 다시 보낼 access 토큰을 구한다
func (c *Client) recoverAccess(ctx context.Context, used string) (string, error) {
	refresh, err := c.tokens.Read(ctx, session.Refresh)
	if err != nil {
		return "", fmt.Errorf("backend: read refresh token: %w", err)
	}
	if refresh == "" {
		c.endSession(ctx, "no refresh token")
		return "", ErrSessionEnded
	}

	// 같은 요청 안에서 이미 교체된 경우 갱신 없이 다시 보낸다
	current, err := c.tokens.Read(ctx, session.Access)
	if err != nil {
		return "", fmt.Errorf("backend: read access token: %w", err)
	}
	if current != "" && current != used {
		return current, nil
	}

	pair, err := c.coalescedRefresh(ctx, refresh)
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// coalescedRefresh는 같은 refresh 토큰에 대한 갱신을 한 번만 수행한다.
// 갱신 자체는 호출자의 취소와 분리되어 끝까지 진행되고, 기다리는 쪽은 ctx가 끝나면 먼저 빠진다.
func (c *Client) coalescedRefresh(ctx context.Context, refresh string) (session.Pair, error) {
	if pair, ok := c.lookupSettled(refresh); ok {
		return pair, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refresh, func() (any, error) {
		// 앞선 에피소드가 확인과 DoChan 사이에 끝났을 수 있다
		if pair, ok := c.lookupSettled(refresh); ok {
			return pair, nil
		}

		rctx, cancel := context.WithTimeout(detached, c.refreshTimeout)
		defer cancel()

		c.log.Info().Msg("refreshing access token")
		pair, err := c.refresh(rctx, refresh)
		if err != nil {
			return nil, c.refreshFailed(rctx, err)
		}

		c.settle(refresh, pair)
		if err := c.tokens.Write(rctx, pair); err != nil {
			c.log.Error().Err(err).Msg("failed to store refreshed tokens")
			return nil, &RefreshError{Err: err}
		}
		c.log.Info().Msg("token refresh successful")
		return pair, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return session.Pair{}, res.Err
		}
		if res.Shared {
			c.log.Debug().Msg("joined in-flight token refresh")
		}
		return res.Val.(session.Pair), nil
	case <-ctx.Done():
		c.log.Debug().Err(ctx.Err()).Msg("stopped waiting for token refresh")
		return session.Pair{}, ctx.Err()
	}
}

func (c *Client) refresh(ctx context.Context, refresh string) (session.Pair, error) {
	req := Request{
		Method:    http.MethodPost,
		Path:      refreshPath,
		Body:      map[string]string{"refreshToken": refresh},
		Anonymous: true,
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return session.Pair{}, err
	}

	var tokens tokenResponse
	if err := resp.Decode(&tokens); err != nil {
		return session.Pair{}, fmt.Errorf("%w: %w", ErrMalformedRefresh, err)
	}
	pair := session.Pair{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	if !pair.Complete() {
		return session.Pair{}, ErrMalformedRefresh
	}
	return pair, nil
}

// refreshFailed는 401/403이면 세션을 끝내고, 그 외에는 일시 오류로 감싼다
func (c *Client) refreshFailed(ctx context.Context, err error) error {
	if IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden) {
		c.log.Warn().Err(err).Msg("refresh token rejected")
		c.endSession(ctx, "refresh token rejected")
		return fmt.Errorf("%w: %w", ErrSessionEnded, err)
	}

	c.log.Warn().Err(err).Msg("token refresh failed")
	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		return refreshErr
	}
	return &RefreshError{Err: err}
}

func (c *Client) endSession(ctx context.Context, reason string) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.log.Error().Err(err).Msg("failed to clear credentials")
	}
	c.log.Info().Str("reason", reason).Msg("session ended")
	c.onSignOut(ctx, reason)
}

func (c *Client) lookupSettled(refresh string) (session.Pair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.settled[refresh]
	if !ok || c.now().Sub(s.at) > c.settleGrace {
		return session.Pair{}, false
	}
	return s.pair, true
}

func (c *Client) settle(refresh string, pair session.Pair) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, s := range c.settled {
		if now.Sub(s.at) > c.settleGrace {
			delete(c.settled, key)
		}
	}
	c.settled[refresh] = settlement{pair: pair, at: now}
}
