package config

import (
	"encoding/json"
	"net/http"

	"taeu.kr/storeadmin/internal/platform/web"
)

// Handler는 대시보드가 읽는 공개 설정 API
type Handler struct{}

type PublicConfigResponse struct {
	BackendBaseURL    string `json:"backendBaseUrl"`
	AccessTTLSeconds  int64  `json:"accessTtlSeconds"`
	RefreshTTLSeconds int64  `json:"refreshTtlSeconds"`
}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/config", web.Handler(h.GetConfig))
}

// GetConfig는 비밀값을 제외한 설정을 반환
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) *web.Error {
	w.Header().Set("Content-Type", "application/json")
	response := PublicConfigResponse{
		BackendBaseURL:    Conf.Backend.BaseURL,
		AccessTTLSeconds:  int64(Conf.Cookie.AccessTTL.Seconds()),
		RefreshTTLSeconds: int64(Conf.Cookie.RefreshTTL.Seconds()),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		return &web.Error{Err: err, Code: http.StatusInternalServerError, Message: "Failed to encode config"}
	}
	return nil
}
