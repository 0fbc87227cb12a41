package spa

import (
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

type spaResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *spaResponseWriter) WriteHeader(status int) {
	w.status = status
	w.wroteHeader = true

	// 404가 아닌 경우 바로 전달
	if status != http.StatusNotFound {
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *spaResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	// 404인 경우 버림
	if w.status == http.StatusNotFound {
		return len(b), nil
	}

	return w.ResponseWriter.Write(b)
}

// NewHandler는 대시보드 정적 파일을 서빙하고, 없는 경로는 index.html로 돌린다.
// /api/ 아래의 404는 index.html로 바꾸지 않는다.
func NewHandler(assets fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(assets))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not Found"}` + "\n"))
			return
		}

		wrapper := &spaResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}
		fileServer.ServeHTTP(wrapper, r)

		if wrapper.status != http.StatusNotFound {
			return
		}

		file, err := assets.Open("index.html")
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("failed to open index.html")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer file.Close()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, file); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("error serving index.html")
		}
	})
}
