package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"taeu.kr/storeadmin/internal/backend"
)

const loginPath = "/login"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FromBackend는 게이트웨이 오류를 응답 오류로 바꾼다. 백엔드 메시지는 그대로 전달한다.
func FromBackend(err error, fallback string) *Error {
	if err == nil {
		return nil
	}

	var apiErr *backend.Error
	var refreshErr *backend.RefreshError
	switch {
	case errors.Is(err, backend.ErrSessionEnded), errors.Is(err, backend.ErrNoCredentials):
		return &Error{Code: http.StatusUnauthorized, Message: "Session expired", Err: err, Redirect: loginPath}
	case errors.As(err, &refreshErr):
		return &Error{Code: http.StatusServiceUnavailable, Message: "Authentication service unavailable", Err: err}
	case errors.As(err, &apiErr):
		return &Error{Code: apiErr.Status, Message: apiErr.Message, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: http.StatusGatewayTimeout, Message: fallback, Err: err}
	default:
		return &Error{Code: http.StatusBadGateway, Message: fallback, Err: err}
	}
}

// Decode는 JSON 본문을 읽고 validate 태그를 검사한다
func Decode(r *http.Request, v any) *Error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &Error{Code: http.StatusBadRequest, Message: "Invalid request body", Err: err}
	}
	return Validate(v)
}

func Validate(v any) *Error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Code: http.StatusBadRequest, Message: "Invalid request", Err: err}
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s: %s", fe.Field(), describe(fe)))
	}
	return &Error{Code: http.StatusBadRequest, Message: "Validation failed", Err: err, Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must not be empty"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email"
	default:
		return "failed " + fe.Tag()
	}
}
