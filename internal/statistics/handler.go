package statistics

import (
	"context"
	"net/http"

	"taeu.kr/storeadmin/internal/backend"
	"taeu.kr/storeadmin/internal/platform/web"
)

type Gateway interface {
	DashboardStats(ctx context.Context) (*backend.DashboardStats, error)
	Revenue(ctx context.Context, period backend.Period) (*backend.RevenueStats, error)
}

type Handler struct {
	gateway Gateway
}

func NewHandler(gateway Gateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/statistics/dashboard", web.Handler(h.handleDashboard))
	mux.Handle("GET /api/statistics/revenue", web.Handler(h.handleRevenue))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) *web.Error {
	stats, err := h.gateway.DashboardStats(r.Context())
	if err != nil {
		return web.FromBackend(err, "Failed to load dashboard statistics")
	}
	web.JSON(w, http.StatusOK, stats)
	return nil
}

func (h *Handler) handleRevenue(w http.ResponseWriter, r *http.Request) *web.Error {
	period := backend.Period(r.URL.Query().Get("period"))
	if period != "" && !period.Valid() {
		return &web.Error{Code: http.StatusBadRequest, Message: "period must be one of week, month, year"}
	}

	stats, err := h.gateway.Revenue(r.Context(), period)
	if err != nil {
		return web.FromBackend(err, "Failed to load revenue statistics")
	}
	web.JSON(w, http.StatusOK, stats)
	return nil
}
