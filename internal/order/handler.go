package order

import (
	"context"
	"net/http"
	"strconv"

	"taeu.kr/storeadmin/internal/backend"
	"taeu.kr/storeadmin/internal/platform/web"
)

type Gateway interface {
	ListOrders(ctx context.Context, f backend.OrderFilter) (*backend.Page[backend.Order], error)
	GetOrder(ctx context.Context, id string) (*backend.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status backend.OrderStatus) (*backend.Order, error)
}

type Handler struct {
	gateway Gateway
}

func NewHandler(gateway Gateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/orders", web.Handler(h.handleList))
	mux.Handle("GET /api/orders/{id}", web.Handler(h.handleGet))
	mux.Handle("PATCH /api/orders/{id}/status", web.Handler(h.handleUpdateStatus))
}

type statusRequest struct {
	Status backend.OrderStatus `json:"status" validate:"required,oneof=PENDING PROCESSING COMPLETED CANCELLED"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) *web.Error {
	q := r.URL.Query()
	filter := backend.OrderFilter{Status: backend.OrderStatus(q.Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		return &web.Error{Code: http.StatusBadRequest, Message: "Unknown order status"}
	}

	var ok bool
	if filter.Page, ok = positive(q.Get("page")); !ok {
		return &web.Error{Code: http.StatusBadRequest, Message: "page must be a positive integer"}
	}
	if filter.Limit, ok = positive(q.Get("limit")); !ok {
		return &web.Error{Code: http.StatusBadRequest, Message: "limit must be a positive integer"}
	}

	page, err := h.gateway.ListOrders(r.Context(), filter)
	if err != nil {
		return web.FromBackend(err, "Failed to load orders")
	}
	web.JSON(w, http.StatusOK, page)
	return nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) *web.Error {
	o, err := h.gateway.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		return web.FromBackend(err, "Failed to load order")
	}
	web.JSON(w, http.StatusOK, o)
	return nil
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) *web.Error {
	var req statusRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	o, err := h.gateway.UpdateOrderStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		return web.FromBackend(err, "Failed to update order status")
	}
	web.JSON(w, http.StatusOK, o)
	return nil
}

// positive는 빈 값이면 0을 돌려준다
func positive(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}
