package product

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"taeu.kr/storeadmin/internal/backend"
	"taeu.kr/storeadmin/internal/platform/web"
)

const maxImageSize = 10 << 20

type Gateway interface {
	ListProducts(ctx context.Context, f backend.ProductFilter) (*backend.Page[backend.Product], error)
	GetProduct(ctx context.Context, id string) (*backend.Product, error)
	CreateProduct(ctx context.Context, in backend.CreateProduct) (*backend.Product, error)
	UpdateProduct(ctx context.Context, id string, in backend.UpdateProduct) (*backend.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UploadProductImage(ctx context.Context, filename string, r io.Reader) (*backend.UploadedImage, error)
	ImageURL(raw string) string
}

type Handler struct {
	gateway Gateway
}

func NewHandler(gateway Gateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/products", web.Handler(h.handleList))
	mux.Handle("POST /api/products", web.Handler(h.handleCreate))
	mux.Handle("POST /api/products/image", web.Handler(h.handleUploadImage))
	mux.Handle("GET /api/products/{id}", web.Handler(h.handleGet))
	mux.Handle("PATCH /api/products/{id}", web.Handler(h.handleUpdate))
	mux.Handle("DELETE /api/products/{id}", web.Handler(h.handleDelete))
}

// view는 대시보드가 바로 쓸 수 있는 이미지 주소를 덧붙인다
type view struct {
	*backend.Product
	ImageSrc string `json:"imageSrc"`
}

type pageView struct {
	Data []view           `json:"data"`
	Meta backend.PageMeta `json:"meta"`
}

func (h *Handler) toView(p *backend.Product) view {
	raw := ""
	if p.ImageURL != nil {
		raw = *p.ImageURL
	}
	return view{Product: p, ImageSrc: h.gateway.ImageURL(raw)}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) *web.Error {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		return &web.Error{Code: http.StatusBadRequest, Message: "Invalid query parameter", Err: err}
	}

	page, err := h.gateway.ListProducts(r.Context(), filter)
	if err != nil {
		return web.FromBackend(err, "Failed to load products")
	}

	out := pageView{Data: make([]view, 0, len(page.Data)), Meta: page.Meta}
	for i := range page.Data {
		out.Data = append(out.Data, h.toView(&page.Data[i]))
	}
	web.JSON(w, http.StatusOK, out)
	return nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) *web.Error {
	p, err := h.gateway.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		return web.FromBackend(err, "Failed to load product")
	}
	web.JSON(w, http.StatusOK, h.toView(p))
	return nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) *web.Error {
	var in backend.CreateProduct
	if err := web.Decode(r, &in); err != nil {
		return err
	}

	p, err := h.gateway.CreateProduct(r.Context(), in)
	if err != nil {
		return web.FromBackend(err, "Failed to create product")
	}
	web.JSON(w, http.StatusCreated, h.toView(p))
	return nil
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) *web.Error {
	var in backend.UpdateProduct
	if err := web.Decode(r, &in); err != nil {
		return err
	}

	p, err := h.gateway.UpdateProduct(r.Context(), r.PathValue("id"), in)
	if err != nil {
		return web.FromBackend(err, "Failed to update product")
	}
	web.JSON(w, http.StatusOK, h.toView(p))
	return nil
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) *web.Error {
	if err := h.gateway.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		return web.FromBackend(err, "Failed to delete product")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) handleUploadImage(w http.ResponseWriter, r *http.Request) *web.Error {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &web.Error{Code: http.StatusRequestEntityTooLarge, Message: "Image must be 10 MiB or smaller", Err: err}
		}
		return &web.Error{Code: http.StatusBadRequest, Message: "Missing file field", Err: err}
	}
	defer file.Close()

	if header.Size > maxImageSize {
		return &web.Error{Code: http.StatusRequestEntityTooLarge, Message: "Image must be 10 MiB or smaller"}
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return &web.Error{Code: http.StatusUnsupportedMediaType, Message: "Only image uploads are allowed"}
	}

	img, err := h.gateway.UploadProductImage(r.Context(), header.Filename, file)
	if err != nil {
		return web.FromBackend(err, "Failed to upload image")
	}
	web.JSON(w, http.StatusCreated, map[string]string{
		"imageUrl": img.ImageURL,
		"filename": img.Filename,
		"imageSrc": h.gateway.ImageURL(img.ImageURL),
	})
	return nil
}

func parseFilter(q url.Values) (backend.ProductFilter, error) {
	f := backend.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	var err error
	if f.MinPrice, err = optionalFloat(q, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = optionalFloat(q, "maxPrice"); err != nil {
		return f, err
	}
	if f.Page, err = optionalInt(q, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = optionalInt(q, "limit"); err != nil {
		return f, err
	}
	return f, nil
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, errors.New(key + " must be a non-negative number")
	}
	return &v, nil
}

func optionalInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return v, nil
}
