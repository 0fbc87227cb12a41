package web

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

// Error는 웹 계층의 커스텀 에러 타입을 정의
type Error struct {
	Code    int
	Message string
	Err     error

	// Redirect가 있으면 클라이언트는 해당 경로로 이동해야 함
	Redirect string
	Fields   []string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Handler는 에러를 반환하는 웹 계층의 커스텀 핸들러 타입을 정의
type Handler func(w http.ResponseWriter, r *http.Request) *Error

func (fn Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := fn(w, r)
	if err == nil {
		return
	}

	event := hlog.FromRequest(r).Warn()
	if err.Code >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Error()
	}
	event.
		Err(err.Err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", err.Code).
		Msg(err.Message)

	body := map[string]any{"error": err.Message}
	if err.Redirect != "" {
		body["redirect"] = err.Redirect
	}
	if len(err.Fields) > 0 {
		body["fields"] = err.Fields
	}
	JSON(w, err.Code, body)
}

// JSON은 v를 JSON으로 인코딩해 응답
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
