package backend

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"taeu.kr/storeadmin/internal/session"
)

const placeholderImage = "/placeholder.png"

// UploadProductImage는 multipart "file" 필드로 이미지를 올린다.
// bearer는 붙이지만 갱신 프로토콜은 적용하지 않고 오류를 그대로 돌려준다.
func (c *Client) UploadProductImage(ctx context.Context, filename string, r io.Reader) (*UploadedImage, error) {
	access, err := c.tokens.Read(ctx, session.Access)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, ErrNoCredentials
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req := Request{
		Method:      http.MethodPost,
		Path:        "/upload/product-image",
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	}
	payload, err := encode(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.checked(c.send(ctx, req, payload, access))
	if err != nil {
		return nil, err
	}

	var out UploadedImage
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImageURL은 /uploads/ 상대 경로를 백엔드 주소 기준 절대 경로로 바꾼다
func (c *Client) ImageURL(raw string) string {
	switch {
	case raw == "":
		return placeholderImage
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "/uploads/"):
		return c.baseURL + raw
	default:
		return raw
	}
}
