// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/cynco/irportal/internal/auth"
	"github.com/cynco/irportal/internal/config"
	"github.com/cynco/irportal/internal/database"
	"github.com/cynco/irportal/internal/handler"
	"github.com/cynco/irportal/internal/logger"
	"github.com/cynco/irportal/internal/metrics"
	"github.com/cynco/irportal/internal/middleware"
	"github.com/cynco/irportal/internal/portal"
	"github.com/cynco/irportal/internal/repository"
	"github.com/cynco/irportal/internal/security"
	"github.com/cynco/irportal/internal/seed"
	"github.com/cynco/irportal/internal/worker"
	"github.com/cynco/irportal/internal/worker/cleanup"
	"github.com/cynco/irportal/internal/worker/linkcheck"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込みの失敗もJSONで出力できるよう、先にInfoレベルで初期化する
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openStore はDATABASE_URLに応じてストアを構築する。
// 未設定の場合はシードデータを投入したメモリストアを返す。
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	if cfg.UsesMemoryStore() {
		data, err := seed.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load seed data: %w", err)
		}
		store, err := repository.NewMemoryStore(data)
		if err != nil {
			return nil, fmt.Errorf("failed to build memory store: %w", err)
		}
		slog.Warn("DATABASE_URL is not set; using in-memory store (data is lost on restart)")
		return store, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return repository.NewPostgresStore(db), nil
}

// newRegistry はアプリケーションメトリクスとランタイムメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// rateLimiterConfig はreq/min単位の設定をリミッター設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rl.GeneralBurst = cfg.RateLimitGeneral
	rl.LoginRate = rate.Every(15 * time.Minute / time.Duration(cfg.RateLimitLogin))
	rl.LoginBurst = cfg.RateLimitLogin
	return rl
}

// server はAPIサーバーの構成要素。
type server struct {
	handler http.Handler
	limiter *middleware.RateLimiter
}

// newServer はストアを受け取り、認証・ポータル・ルーターをワイヤリングする。
func newServer(cfg *config.Config, store *repository.Store, reg *prometheus.Registry, collector *metrics.Collector) (*server, error) {
	data, err := seed.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load seed data: %w", err)
	}
	hashing := auth.Hashing(cfg.CredentialHashing)
	credentials, err := auth.NewSeededCredentialStore(data.Accounts, hashing, cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to build credential store: %w", err)
	}

	authService := auth.NewService(
		credentials, store.Principals, store.Sessions,
		auth.NewSessionCodec([]byte(cfg.SessionSecret)),
		auth.ServiceConfig{
			SessionTTL:  cfg.SessionTTL,
			DummySecret: auth.NewDummySecret(hashing),
			Recorder:    collector,
		},
	)

	portalService := portal.NewService(store,
		security.NewContentRenderer(), security.NewURLGuard(), collector)

	limiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))

	router := handler.NewRouter(&handler.RouterDeps{
		PrincipalLoader:   authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		HTTPRecorder:      collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},

		PortalService: portalService,
		FeedConfig:    handler.FeedConfig{BaseURL: cfg.BaseURL},

		Store:          store,
		MetricsHandler: metrics.Handler(reg),
	})

	return &server{handler: router, limiter: limiter}, nil
}

// runServe はAPIサーバーモードで起動する。
// ストアを構築して全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行い、ストアを閉じる。
func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	reg, collector := newRegistry()
	srv, err := newServer(cfg, store, reg, collector)
	if err != nil {
		return err
	}
	defer srv.limiter.Stop()

	// メモリストアは別プロセスのワーカーから参照できないため、期限切れセッションの削除をここで行う
	if cfg.UsesMemoryStore() {
		job := cleanup.NewSessionCleanupJob(store.Sessions, collector, slog.Default())
		go worker.RunPeriodic(ctx, slog.Default(), "session_cleanup", cfg.SessionCleanupInterval, job)
	}

	return serveHTTP(ctx, &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
}

// serveHTTP はctxがキャンセルされるまでサーバーを動かし、その後シャットダウンする。
func serveHTTP(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除と書類リンクチェックを定期実行し、
// /metrics と /health を公開する。PostgreSQLが必須。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.UsesMemoryStore() {
		return errors.New("worker requires DATABASE_URL")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	reg, collector := newRegistry()
	guard := security.NewURLGuard()

	cleanupJob := cleanup.NewSessionCleanupJob(store.Sessions, collector, slog.Default())
	checker := linkcheck.NewChecker(store.Documents, guard,
		guard.NewSafeClient(cfg.LinkCheckTimeout), collector, slog.Default())

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
		slog.Duration("link_check_interval", cfg.LinkCheckInterval),
	)

	go worker.RunPeriodic(ctx, slog.Default(), "session_cleanup", cfg.SessionCleanupInterval, cleanupJob)
	go worker.RunPeriodic(ctx, slog.Default(), "link_check", cfg.LinkCheckInterval, checker)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(reg))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	err = serveHTTP(ctx, &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	})
	slog.Info("worker stopped gracefully")
	return err
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.UsesMemoryStore() {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func closeStore(store *repository.Store) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close store", slog.String("error", err.Error()))
	}
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
