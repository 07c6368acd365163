package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/risk-assistant/internal/cache"
	"github.com/pribylovaa/risk-assistant/internal/config"
	apihttp "github.com/pribylovaa/risk-assistant/internal/http"
	"github.com/pribylovaa/risk-assistant/internal/http/handlers"
	"github.com/pribylovaa/risk-assistant/internal/http/middleware"
	"github.com/pribylovaa/risk-assistant/internal/oauth"
	"github.com/pribylovaa/risk-assistant/internal/rag"
	"github.com/pribylovaa/risk-assistant/internal/service"
	"github.com/pribylovaa/risk-assistant/internal/storage/mongo"
	"github.com/pribylovaa/risk-assistant/internal/storage/postgres"
	"github.com/pribylovaa/risk-assistant/internal/token"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// pinger — зависимость, участвующая в readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting risk-assistant", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	log.Info("postgres_connected")

	if cfg.DB.MigrateOnStart {
		if err := str.Migrate(rootCtx, log); err != nil {
			log.Error("postgres_migrate_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		log.Info("postgres_migrated")
	}

	deps := []pinger{str}

	// Список отозванных токенов: Redis, если задан, иначе память процесса.
	var revocations token.RevocationStore
	if cfg.Redis.RedisURL != "" {
		rctx, rcancel := context.WithTimeout(rootCtx, 5*time.Second)
		rr, err := cache.NewRedisRevocations(rctx, cfg.Redis.RedisURL, cfg.Redis.Prefix)
		rcancel()
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = rr.Close() }()
		revocations = rr
		deps = append(deps, rr)
		log.Info("redis_connected")
	} else {
		mem := token.NewMemoryRevocations()
		startRevocationJanitor(rootCtx, mem, log, cfg.Auth.JanitorPeriod)
		revocations = mem
		log.Info("revocations_in_memory")
	}

	tokens := token.NewManager(cfg.Auth, revocations)
	srvc := service.New(str, tokens, token.NewBcryptHasher(0))

	if cfg.Mongo.URL != "" {
		mctx, mcancel := context.WithTimeout(rootCtx, 10*time.Second)
		hist, err := mongo.New(mctx, cfg.Mongo.URL)
		mcancel()
		if err != nil {
			log.Error("mongo_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() {
			cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer ccancel()
			_ = hist.Close(cctx)
		}()
		srvc.SetHistory(hist)
		deps = append(deps, hist)
		log.Info("mongo_connected")
	}

	if cfg.OAuth.Enabled() {
		srvc.SetOAuth(oauth.NewGoogle(cfg.OAuth))
		log.Info("google_oauth_enabled")
	}

	if cfg.RAG.Enabled() {
		searcher, err := rag.NewOpenSearchSearcher(cfg.RAG)
		if err != nil {
			log.Error("opensearch_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		client := rag.NewOpenAIClient(cfg.RAG)
		srvc.SetAssistant(rag.NewAssistant(
			rag.NewOpenAIEmbedder(client, cfg.RAG.EmbeddingModel),
			searcher,
			rag.NewOpenAIGenerator(client, cfg.RAG.ChatModel),
			cfg.RAG.TopK,
		))
		deps = append(deps, searcher)
		log.Info("rag_enabled", slog.String("index", cfg.RAG.Index))
	}

	log.Info("service_initialized")

	apiHandler := apihttp.NewRouter(
		handlers.New(srvc, handlers.Cookies{Secure: cfg.HTTP.CookieSecure}),
		apihttp.Options{
			Logger:   log,
			Timeout:  cfg.Timeouts.Service,
			BasePath: cfg.HTTP.BasePath,
			Verifier: tokens,
			Users:    str,
			Metrics:  middleware.NewMetrics(nil),
		},
	)

	var ready int32 // 0 — not ready; 1 — ready

	ops := http.NewServeMux()
	ops.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ops.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, d := range deps {
			if err := d.Ping(ctx); err != nil {
				log.Warn("readiness_ping_failed", slog.String("err", err.Error()))
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ops.Handle("/metrics", promhttp.Handler())

	opsSrv := &http.Server{
		Addr:              cfg.HTTP.OpsAddr(),
		Handler:           ops,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("ops_listen_start", slog.String("addr", opsSrv.Addr))
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops_serve_failed", slog.String("err", err.Error()))
		}
	}()

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr), slog.String("base_path", cfg.HTTP.BasePath))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}
	_ = opsSrv.Shutdown(shutdownCtx)

	log.Info("service_stopped")
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// startRevocationJanitor периодически удаляет из памяти jti, срок которых истёк.
func startRevocationJanitor(ctx context.Context, mem *token.MemoryRevocations, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				if n := mem.Purge(now.UTC()); n > 0 {
					log.Debug("revocation_janitor_purged", slog.Int("count", n))
				}
			}
		}
	}()
}
