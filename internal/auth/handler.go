package auth

import (
	"errors"
	"net/http"

	"taeu.kr/storeadmin/internal/platform/web"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/auth/login", web.Handler(h.handleLogin))
	mux.Handle("POST /api/auth/logout", web.Handler(h.handleLogout))
	mux.Handle("GET /api/auth/me", web.Handler(h.handleMe))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) *web.Error {
	var req loginRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			return &web.Error{Code: http.StatusUnauthorized, Message: "Invalid credentials", Err: err}
		case errors.Is(err, ErrNotAdmin):
			return &web.Error{Code: http.StatusForbidden, Message: "Access restricted to administrators", Err: err}
		case errors.Is(err, ErrMissingTokens):
			return &web.Error{Code: http.StatusBadGateway, Message: "Login response was incomplete", Err: err}
		}
		return web.FromBackend(err, "Failed to login")
	}

	web.JSON(w, http.StatusOK, sess)
	return nil
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) *web.Error {
	if err := h.service.Logout(r.Context()); err != nil {
		return &web.Error{Code: http.StatusInternalServerError, Message: "Failed to logout", Err: err}
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// handleMe는 페이지 진입 시 세션을 확정한다. 실패하면 항상 로그인으로 보낸다.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) *web.Error {
	sess, err := h.service.Check(r.Context())
	if err != nil {
		var webErr *web.Error
		switch {
		case errors.Is(err, ErrNotAuthenticated):
			webErr = &web.Error{Code: http.StatusUnauthorized, Message: "Unauthorized", Err: err}
		case errors.Is(err, ErrNotAdmin):
			webErr = &web.Error{Code: http.StatusForbidden, Message: "Access restricted to administrators", Err: err}
		default:
			webErr = web.FromBackend(err, "Failed to load profile")
		}
		webErr.Redirect = LoginPath
		return webErr
	}

	web.JSON(w, http.StatusOK, sess)
	return nil
}
