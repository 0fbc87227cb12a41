package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionEnded는 자격 증명이 지워졌고 다시 로그인해야 함을 뜻한다
	ErrSessionEnded     = errors.New("backend: session ended")
	ErrMalformedRefresh = errors.New("backend: refresh response is missing tokens")
	ErrNoCredentials    = errors.New("backend: no access token stored")
)

// Error는 2xx가 아닌 백엔드 응답
type Error struct {
	Status  int
	Message string
	Body    []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %d %s", e.Status, e.Message)
}

// RefreshError는 일시적인 갱신 실패. 저장된 자격 증명은 그대로 둔다.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "backend: token refresh failed: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IsStatus는 err가 주어진 상태 코드의 백엔드 응답인지 확인
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// newError는 {message}를 문자열 또는 문자열 목록으로 해석한다
func newError(status int, body []byte) *Error {
	e := &Error{Status: status, Body: body}

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var single string
		var list []string
		switch {
		case json.Unmarshal(payload.Message, &single) == nil && single != "":
			e.Message = single
		case json.Unmarshal(payload.Message, &list) == nil && len(list) > 0:
			e.Message = strings.Join(list, "; ")
		case payload.Error != "":
			e.Message = payload.Error
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
