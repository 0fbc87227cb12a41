package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"taeu.kr/storeadmin/internal/session"
)

const (
	refreshPath = "/auth/refresh"

	DefaultRefreshTimeout = 10 * time.Second
	DefaultSettleGrace    = 30 * time.Second
)

// TokenStore는 게이트웨이가 쓰는 자격 증명 저장소. *session.Store가 구현한다.
type TokenStore interface {
	Read(ctx context.Context, kind session.Kind) (string, error)
	Write(ctx context.Context, pair session.Pair) error
	Clear(ctx context.Context) error
}

type Config struct {
	BaseURL        string
	HTTPClient     *http.Client
	Tokens         TokenStore
	RefreshTimeout time.Duration
	// SettleGrace 동안 이미 소비된 refresh 토큰으로 온 401은 갱신 결과를 재사용
	SettleGrace time.Duration
	// OnSignOut은 세션이 끝나 자격 증명을 지운 뒤 호출된다
	OnSignOut func(ctx context.Context, reason string)
	Logger    *zerolog.Logger
}

type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenStore
	refreshTimeout time.Duration
	settleGrace    time.Duration
	onSignOut      func(ctx context.Context, reason string)
	log            zerolog.Logger

	group   singleflight.Group
	mu      sync.Mutex
	settled map[string]settlement
	now     func() time.Time
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           cfg.HTTPClient,
		tokens:         cfg.Tokens,
		refreshTimeout: cfg.RefreshTimeout,
		settleGrace:    cfg.SettleGrace,
		onSignOut:      cfg.OnSignOut,
		settled:        map[string]settlement{},
		now:            time.Now,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.refreshTimeout <= 0 {
		c.refreshTimeout = DefaultRefreshTimeout
	}
	if c.settleGrace <= 0 {
		c.settleGrace = DefaultSettleGrace
	}
	if c.onSignOut == nil {
		c.onSignOut = func(context.Context, string) {}
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "gateway").Logger()
	} else {
		c.log = log.With().Str("component", "gateway").Logger()
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request는 백엔드 호출 하나. Body가 []byte면 ContentType과 함께 그대로 보낸다.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	ContentType string
	// Anonymous면 bearer를 붙이지 않고 갱신 프로토콜도 적용하지 않는다
	Anonymous bool
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

type encoded struct {
	body        []byte
	contentType string
}

func encode(req Request) (encoded, error) {
	switch body := req.Body.(type) {
	case nil:
		return encoded{}, nil
	case []byte:
		return encoded{body: body, contentType: req.ContentType}, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return encoded{}, fmt.Errorf("backend: encode request: %w", err)
		}
		return encoded{body: data, contentType: "application/json"}, nil
	}
}

// Do는 bearer를 붙여 요청을 보내고, 401이면 갱신 후 한 번만 다시 보낸다.
// 2xx가 아닌 응답은 *Error로 반환한다.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	payload, err := encode(req)
	if err != nil {
		return nil, err
	}

	if req.Anonymous {
		return c.checked(c.send(ctx, req, payload, ""))
	}

	access, err := c.tokens.Read(ctx, session.Access)
	if err != nil {
		return nil, fmt.Errorf("backend: read access token: %w", err)
	}

	resp, err := c.send(ctx, req, payload, access)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized {
		return c.checked(resp, nil)
	}

	if isRefreshPath(req.Path) {
		c.endSession(ctx, "refresh endpoint rejected credentials")
		return nil, fmt.Errorf("%w: %w", ErrSessionEnded, newError(resp.Status, resp.Body))
	}

	fresh, err := c.recoverAccess(ctx, access)
	if err != nil {
		return nil, err
	}

	// 재시도는 정확히 한 번. 다시 401이면 그대로 돌려준다.
	return c.checked(c.send(ctx, req, payload, fresh))
}

func (c *Client) checked(resp *Response, err error) (*Response, error) {
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, newError(resp.Status, resp.Body)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request, payload encoded, bearer string) (*Response, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload.body != nil {
		body = bytes.NewReader(payload.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload.contentType != "" {
		httpReq.Header.Set("Content-Type", payload.contentType)
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read response: %w", err)
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   data,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func isRefreshPath(path string) bool {
	p, _, _ := strings.Cut(path, "?")
	return strings.HasSuffix(strings.TrimRight(p, "/"), refreshPath)
}
