package spa_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"taeu.kr/storeadmin/internal/spa"
)

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"index.html":    {Data: []byte("<html>dashboard</html>")},
		"assets/app.js": {Data: []byte("console.log('app')")},
	}
}

func TestHandler_ServesStaticFile(t *testing.T) {
	rec := httptest.NewRecorder()
	spa.NewHandler(testAssets()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "console.log") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHandler_FallsBackToIndexForClientRoutes(t *testing.T) {
	for _, path := range []string{"/orders", "/products/42/edit", "/login"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			spa.NewHandler(testAssets()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			if rec.Body.String() != "<html>dashboard</html>" {
				t.Fatalf("expected index.html, got %q", rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Fatalf("expected html content type, got %q", ct)
			}
		})
	}
}

func TestHandler_UnknownAPIPathStays404(t *testing.T) {
	rec := httptest.NewRecorder()
	spa.NewHandler(testAssets()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandler_MissingIndexIsServerError(t *testing.T) {
	rec := httptest.NewRecorder()
	spa.NewHandler(fstest.MapFS{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}
