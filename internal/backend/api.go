package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Login은 bearer 없이 호출하며 401이어도 갱신하지 않는다
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	resp, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		Body:      creds,
		Anonymous: true,
	})
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListProducts(ctx context.Context, f ProductFilter) (*Page[Product], error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	setPaging(q, f.Page, f.Limit)

	var page Page[Product]
	if err := c.get(ctx, "/products", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := c.get(ctx, "/products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, in CreateProduct) (*Product, error) {
	var p Product
	if err := c.call(ctx, http.MethodPost, "/products", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in UpdateProduct) (*Product, error) {
	var p Product
	if err := c.call(ctx, http.MethodPatch, "/products/"+url.PathEscape(id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListOrders(ctx context.Context, f OrderFilter) (*Page[Order], error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("backend: unknown order status %q", f.Status)
	}

	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	setPaging(q, f.Page, f.Limit)

	var page Page[Order]
	if err := c.get(ctx, "/orders/admin/all", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := c.get(ctx, "/orders/admin/"+url.PathEscape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) (*Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("backend: unknown order status %q", status)
	}

	var o Order
	body := map[string]OrderStatus{"status": status}
	if err := c.call(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.get(ctx, "/statistics/dashboard", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Revenue는 기간이 비어 있으면 month를 쓴다
func (c *Client) Revenue(ctx context.Context, period Period) (*RevenueStats, error) {
	if period == "" {
		period = PeriodMonth
	}
	if !period.Valid() {
		return nil, fmt.Errorf("backend: unknown period %q", period)
	}

	var stats RevenueStats
	if err := c.get(ctx, "/statistics/revenue", url.Values{"period": {string(period)}}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func setPaging(q url.Values, page, limit int) {
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}
