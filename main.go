package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"taeu.kr/storeadmin/internal/auth"
	"taeu.kr/storeadmin/internal/backend"
	"taeu.kr/storeadmin/internal/config"
	"taeu.kr/storeadmin/internal/order"
	"taeu.kr/storeadmin/internal/platform/database"
	"taeu.kr/storeadmin/internal/platform/logging"
	"taeu.kr/storeadmin/internal/product"
	"taeu.kr/storeadmin/internal/session"
	"taeu.kr/storeadmin/internal/session/store"
	"taeu.kr/storeadmin/internal/spa"
	"taeu.kr/storeadmin/internal/statistics"
	"taeu.kr/storeadmin/internal/status"
)

// ldflags로 주입
var (
	goEnv     = "development"
	version   = "dev"
	commit    = ""
	buildDate = ""
)

const purgeInterval = 10 * time.Minute

func main() {
	config.SetConfig(goEnv)
	conf := config.Conf
	logging.Setup(conf.Log.Level, conf.Log.Pretty)

	log.Info().Str("env", goEnv).Str("version", version).Msg("[Main] Starting Server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openKV(ctx, conf.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", conf.Store.Driver).Msg("[Main] Failed to open session store")
	}
	defer closeKV()

	srv := &http.Server{
		Addr:              ":" + conf.Server.Port,
		Handler:           newServer(conf, kv, os.DirFS(conf.Server.WebRoot), nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Msgf("[Main] Server is running on port %s", conf.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("[Main] Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("[Main] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[Main] Graceful shutdown failed")
	}
}

// openKV는 설정된 드라이버의 세션 KV를 연다
func openKV(ctx context.Context, conf config.Store) (session.KV, func(), error) {
	switch conf.Driver {
	case "redis":
		kv, err := store.OpenRedis(ctx, conf.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil
	default:
		db, err := database.Open(ctx, conf.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		kv := store.NewSQLite(db)
		go purgeExpired(ctx, kv)
		return kv, func() { _ = db.Close() }, nil
	}
}

func purgeExpired(ctx context.Context, kv *store.SQLite) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := kv.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("[Main] Failed to purge expired session entries")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("[Main] Purged expired session entries")
			}
		}
	}
}

// newServer는 라우트와 미들웨어 체인을 조립한다.
// Bind가 Gate보다 바깥이어야 레거시 이전 결과가 Gate에 보인다.
func newServer(conf config.Config, kv session.KV, assets fs.FS, httpClient *http.Client) http.Handler {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	tokens := session.NewStore(kv, session.Options{
		AccessTTL:  conf.Cookie.AccessTTL,
		RefreshTTL: conf.Cookie.RefreshTTL,
		Secure:     conf.Server.SecureCookies,
	})

	client := backend.New(backend.Config{
		BaseURL:        conf.Backend.BaseURL,
		HTTPClient:     httpClient,
		Tokens:         tokens,
		RefreshTimeout: conf.Backend.RefreshTimeout,
		SettleGrace:    conf.Backend.SettleGrace,
		OnSignOut: func(ctx context.Context, reason string) {
			log.Ctx(ctx).Info().Str("reason", reason).Msg("[Auth] session ended, redirecting to login")
		},
	})
	authService := auth.NewService(client, tokens)

	mux := http.NewServeMux()
	auth.NewHandler(authService).RegisterRoutes(mux)
	product.NewHandler(client).RegisterRoutes(mux)
	order.NewHandler(client).RegisterRoutes(mux)
	statistics.NewHandler(client).RegisterRoutes(mux)
	config.NewHandler().RegisterRoutes(mux)
	status.NewHandler(kv, conf.Backend.BaseURL, nil, status.Meta{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	}).RegisterRoutes(mux)
	mux.Handle("/", spa.NewHandler(assets))

	var h http.Handler = mux
	// access 쿠키만 남은 반쪽 세션은 로그인 상태로 보지 않는다
	gateCfg := auth.DefaultGateConfig(func(r *http.Request) bool {
		return tokens.HasCookie(r.Context(), session.Access) && tokens.HasCookie(r.Context(), session.Refresh)
	})
	gateCfg.Protected = append(gateCfg.Protected, conf.Server.ExtraProtectedPaths...)
	h = auth.Gate(gateCfg)(h)
	h = authService.Middleware(h)
	h = tokens.Bind(h)
	if conf.Backend.RequestTimeout > 0 {
		h = middleware.Timeout(conf.Backend.RequestTimeout)(h)
	}
	h = logging.Middleware(h)
	h = middleware.RealIP(h)
	return middleware.Recoverer(h)
}
