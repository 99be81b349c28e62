package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/jobboard/internal/auth"
	"github.com/hitoshi/jobboard/internal/config"
	"github.com/hitoshi/jobboard/internal/database"
	"github.com/hitoshi/jobboard/internal/handler"
	"github.com/hitoshi/jobboard/internal/logger"
	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/mutation"
	"github.com/hitoshi/jobboard/internal/projection"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/security"
	"github.com/hitoshi/jobboard/internal/snapshot"
	"github.com/hitoshi/jobboard/internal/store"
	"github.com/hitoshi/jobboard/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

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
		slog.String("role_policy", cfg.RolePolicy),
		slog.String("snapshot_driver", cfg.SnapshotDriver),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandExport:
		return runExport(cfg, exportPath(args))
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ストアを組み立てて全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. DB接続（DATABASE_URLが設定されている場合のみ）
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 3. ストアとスナップショット
	b, err := openBoard(ctx, cfg, db, collector)
	if err != nil {
		return err
	}
	defer b.Close()

	// 4. セッションリポジトリ
	var sessionRepo repository.SessionRepository = repository.NewMemorySessionRepo()
	if db != nil {
		sessionRepo = repository.NewPostgresSessionRepo(db)
	}

	// 5. ルーターの構築
	limiter := newRateLimiter(cfg)
	defer limiter.Stop()

	router, err := buildRouter(cfg, b.store, sessionRepo, db, limiter, reg, collector)
	if err != nil {
		return err
	}

	// 6. 期限切れセッションのクリーンアップ
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, slog.Default(), collector)
	go runPeriodically(ctx, cfg.SessionCleanupInterval, cleanupJob.Run)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildRouter はストアとセッションリポジトリから全ハンドラーを組み立てる。
// dbがnilの場合はヘルスチェックでDB疎通を確認しない。
func buildRouter(
	cfg *config.Config,
	st *store.Store,
	sessionRepo repository.SessionRepository,
	db *sql.DB,
	limiter *middleware.RateLimiter,
	reg *prometheus.Registry,
	collector *metrics.Collector,
) (http.Handler, error) {
	resolver, ok := auth.NewResolver(cfg.RolePolicy, auth.DirectoryConfig{
		AdminEmails:     cfg.AdminEmails,
		ManagerEmails:   cfg.ManagerEmails,
		RecruiterEmails: cfg.RecruiterEmails,
		CompanyDomain:   cfg.CompanyDomain,
	})
	if !ok {
		return nil, fmt.Errorf("unknown role policy %q", cfg.RolePolicy)
	}

	authService := auth.NewService(st, sessionRepo, auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	mutations := mutation.NewService(st, resolver, authService, security.NewTextSanitizer(), collector)
	board := projection.NewService(st, collector)

	deps := &handler.RouterDeps{
		Users:             authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:         slog.Default(),
		StatusRecorder: collector,

		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Mutations: mutations,
		Board:     board,

		MetricsHandler: metrics.Handler(reg),
	}
	if db != nil {
		deps.HealthChecker = db
	}

	return handler.NewRouter(deps), nil
}

// newRateLimiter は設定の毎分リクエスト数からレートリミッターを生成する。
// 呼び出し側はStopでクリーンアップを止める。
func newRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitMutation),
	)
}

// board はストアとスナップショット保存先の組。
type board struct {
	store    *store.Store
	snapshot *snapshot.Persister
	closer   io.Closer
}

// Close はスナップショット保存先を閉じる。
func (b *board) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// openBoard はシードを読み込んだストアを作り、保存済みの求人で上書きする。
// 以降の求人の変更はスナップショットに書き戻される。
func openBoard(ctx context.Context, cfg *config.Config, db *sql.DB, collector metrics.MetricsCollector) (*board, error) {
	st := store.New()
	now := time.Now().UTC()

	switch {
	case cfg.SeedFile != "":
		snap, err := store.LoadSeedFile(cfg.SeedFile, now)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
		if err := st.Import(snap); err != nil {
			return nil, fmt.Errorf("failed to import seed file: %w", err)
		}
		slog.Info("seed file loaded",
			slog.String("path", cfg.SeedFile),
			slog.Int("users", len(snap.Users)),
			slog.Int("jobs", len(snap.Jobs)),
			slog.Int("candidates", len(snap.Candidates)),
		)
	case cfg.SeedDefaults:
		if err := st.Import(store.DefaultSeed(now)); err != nil {
			return nil, fmt.Errorf("failed to import demo seed: %w", err)
		}
	}

	b := &board{store: st}

	repo, closer, err := openSnapshotRepo(cfg, db)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return b, nil
	}
	b.closer = closer

	b.snapshot = snapshot.New(repo, cfg.SnapshotKey, collector)
	if _, err := b.snapshot.Restore(ctx, st); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to restore snapshot: %w", err)
	}
	b.snapshot.Attach(st)

	return b, nil
}

// openSnapshotRepo はSNAPSHOT_DRIVERに応じた保存先を返す。noneの場合はnil。
func openSnapshotRepo(cfg *config.Config, db *sql.DB) (repository.SnapshotRepository, io.Closer, error) {
	switch cfg.SnapshotDriver {
	case config.SnapshotMemory:
		return repository.NewMemorySnapshotRepo(), nil, nil
	case config.SnapshotSQLite:
		repo, err := repository.NewSQLiteSnapshotRepo(cfg.SnapshotPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite snapshot: %w", err)
		}
		slog.Info("sqlite snapshot opened", slog.String("path", repo.Path()))
		return repo, repo, nil
	case config.SnapshotPostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("postgres snapshot requires DATABASE_URL")
		}
		return repository.NewPostgresSnapshotRepo(db), nil, nil
	default:
		return nil, nil, nil
	}
}

// openDatabase はDATABASE_URLが設定されていればPostgreSQLに接続する。
// 未設定の場合はnilを返す。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if !cfg.UsesPostgres() {
		slog.Info("DATABASE_URL is not set; sessions are kept in memory")
		return nil, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// runPeriodically は起動直後に1回、以降interval毎にjobを実行する。
// ctxがキャンセルされると終了する。
func runPeriodically(ctx context.Context, interval time.Duration, job func(context.Context) error) {
	if interval <= 0 {
		return
	}
	run := func() {
		if err := job(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.UsesPostgres() {
		return fmt.Errorf("migrate requires DATABASE_URL")
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

// runExport はシードとスナップショットを読み込んだ状態をJSONで書き出す。
// pathが空または"-"の場合は標準出力に書き出す。
func runExport(cfg *config.Config, path string) error {
	ctx := context.Background()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	b, err := openBoard(ctx, cfg, db, nil)
	if err != nil {
		return err
	}
	defer b.Close()

	var out io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		out = f
	}

	snap := b.store.Export()
	if err := writeSnapshot(out, snap); err != nil {
		return err
	}

	slog.Info("board exported",
		slog.String("path", path),
		slog.Int("users", len(snap.Users)),
		slog.Int("jobs", len(snap.Jobs)),
		slog.Int("candidates", len(snap.Candidates)),
	)
	return nil
}

func writeSnapshot(w io.Writer, snap store.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
