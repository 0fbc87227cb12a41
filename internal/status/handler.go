package status

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"
	"github.com/shirou/gopsutil/v4/process"

	"taeu.kr/storeadmin/internal/platform/web"
)

const probeTimeout = 3 * time.Second

type Meta struct {
	Version   string
	Commit    string
	BuildDate string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ProcessStats struct {
	PID           int32   `json:"pid"`
	RSSBytes      uint64  `json:"rssBytes"`
	CPUPercent    float64 `json:"cpuPercent"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
}

type StatusResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Commit    string           `json:"commit,omitempty"`
	BuildDate string           `json:"buildDate,omitempty"`
	Checks    map[string]Check `json:"checks"`
	Process   ProcessStats     `json:"process"`
}

type Handler struct {
	kv         Pinger
	backendURL string
	httpClient *http.Client
	meta       Meta
	startedAt  time.Time
}

func NewHandler(kv Pinger, backendURL string, httpClient *http.Client, meta Meta) *Handler {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: probeTimeout}
	}
	version := strings.TrimSpace(meta.Version)
	if version == "" {
		version = "dev"
	}

	return &Handler{
		kv:         kv,
		backendURL: backendURL,
		httpClient: httpClient,
		meta: Meta{
			Version:   version,
			Commit:    strings.TrimSpace(meta.Commit),
			BuildDate: strings.TrimSpace(meta.BuildDate),
		},
		startedAt: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/health", web.Handler(h.handleHealth))
	mux.Handle("GET /api/status", web.Handler(h.handleStatus))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) *web.Error {
	web.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) *web.Error {
	checks := map[string]Check{
		"kv":      h.checkKV(r.Context()),
		"backend": h.checkBackend(r.Context()),
	}

	overall := "ok"
	for _, c := range checks {
		if c.Status != "healthy" {
			overall = "degraded"
		}
	}

	stats, err := h.processStats(r.Context())
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("[Status] process stats unavailable")
	}

	web.JSON(w, http.StatusOK, StatusResponse{
		Status:    overall,
		Version:   h.meta.Version,
		Commit:    h.meta.Commit,
		BuildDate: h.meta.BuildDate,
		Checks:    checks,
		Process:   stats,
	})
	return nil
}

func (h *Handler) checkKV(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := h.kv.Ping(ctx); err != nil {
		return Check{Status: "unhealthy", Message: "session store unreachable"}
	}
	return Check{Status: "healthy", Message: "ok"}
}

// checkBackend는 응답이 오기만 하면 상태 코드와 관계없이 도달 가능으로 본다
func (h *Handler) checkBackend(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.backendURL, nil)
	if err != nil {
		return Check{Status: "unhealthy", Message: "invalid backend url"}
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return Check{Status: "unhealthy", Message: "backend unreachable"}
	}
	resp.Body.Close()
	return Check{Status: "healthy", Message: http.StatusText(resp.StatusCode)}
}

func (h *Handler) processStats(ctx context.Context) (ProcessStats, error) {
	stats := ProcessStats{
		PID:           int32(os.Getpid()),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	p, err := process.NewProcessWithContext(ctx, stats.PID)
	if err != nil {
		return stats, err
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.RSSBytes = mem.RSS

	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = cpu
	}
	return stats, nil
}
