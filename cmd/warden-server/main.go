package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/api"
	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/auth"
	"github.com/triage-ai/warden/internal/boundary"
	"github.com/triage-ai/warden/internal/config"
	"github.com/triage-ai/warden/internal/engine"
	"github.com/triage-ai/warden/internal/events"
	"github.com/triage-ai/warden/internal/notify"
	"github.com/triage-ai/warden/internal/queue"
	"github.com/triage-ai/warden/internal/registry"
	"github.com/triage-ai/warden/internal/router"
	"github.com/triage-ai/warden/internal/storage"
	"github.com/triage-ai/warden/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("WARDEN_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("WARDEN_HTTP_PORT", "8080")
	configPath := os.Getenv("WARDEN_CONFIG")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	cacheTTL := envOrDefaultInt("WARDEN_AUTH_CACHE_TTL_S", 30)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("starting warden server",
		zap.String("http_port", httpPort),
		zap.String("config_path", configPath),
		zap.Int("autonomy_level", cfg.AutonomyLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres pool (optional — enables key auth, client CRUD and the
	// dynamic tool-risk registry)
	var (
		db      *sql.DB
		pgStore *store.Store
	)
	if postgresDSN != "" {
		db, err = sql.Open("pgx", postgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		pgStore = store.NewStore(db)
		logger.Info("postgres connected")
	} else {
		logger.Info("no POSTGRES_DSN set, using static auth and tool-risk tables")
	}

	// Authenticator — Postgres-backed with cached bcrypt lookups, or the
	// static wsk_ prefix check for local development
	var authenticator auth.Authenticator
	if db != nil {
		authenticator = auth.NewPostgresAuthenticator(auth.PostgresAuthConfig{
			DB:       db,
			CacheTTL: time.Duration(cacheTTL) * time.Second,
			Logger:   logger,
		})
	} else {
		authenticator = auth.NewStaticAuthenticator()
	}

	// Tool risk lookup for pipeline scoring
	var toolRisk engine.ToolRiskLookup
	if db != nil {
		reg := registry.NewPostgresRegistry(registry.PostgresRegistryConfig{
			DB:     db,
			Logger: logger,
		})
		toolRisk = registry.LookupFunc(reg, cfg.Pipeline.ToolRisk)
	}

	// Storage — ClickHouse or LogWriter fallback
	var writer storage.EventWriter
	if clickhouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = storage.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = storage.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Core governance stack
	bus := events.NewBus(logger)
	auditLog := audit.NewLog(cfg.Audit, logger)
	classifier := engine.NewClassifier(cfg.Risk)
	checker := boundary.NewChecker(cfg.Boundaries, logger)
	q := queue.New(cfg.Queue, bus, auditLog, logger)
	rt := router.New(cfg.AutonomyLevel, classifier, checker, q, bus, auditLog, logger)

	var validator *action.Validator
	if len(cfg.ParamSchemas) > 0 {
		validator, err = action.NewValidator(cfg.ParamSchemas)
		if err != nil {
			logger.Fatal("failed to compile param schemas", zap.Error(err))
		}
	}

	// Notifications driven by bus events
	notifier := notify.NewManager(cfg.Notify, logger)
	wireNotifications(ctx, bus, notifier)

	// Queue sweeper — expiry, escalation, auto-reject
	go q.RunSweeper(ctx)

	// Daily summary notification
	go runDailySummary(ctx, q, notifier)

	// Config hot-reload (boundaries and autonomy level apply live)
	if configPath != "" {
		reloader, err := config.NewReloader(configPath, func(next config.Config) {
			classifier.SetConfig(next.Risk)
			checker.SetConfig(next.Boundaries)
			rt.SetAutonomyLevel(next.AutonomyLevel)
			logger.Info("config reloaded",
				zap.Int("autonomy_level", next.AutonomyLevel))
		}, logger)
		if err != nil {
			logger.Warn("config reloader disabled", zap.Error(err))
		} else {
			go func() {
				if err := reloader.Run(ctx); err != nil {
					logger.Error("config reloader stopped", zap.Error(err))
				}
			}()
		}
	}

	deps := &api.Dependencies{
		Router:     rt,
		Pipeline:   engine.NewPipelineClassifier(cfg.Pipeline, toolRisk),
		Queue:      q,
		Audit:      auditLog,
		Validator:  validator,
		Thresholds: cfg.Risk.Thresholds,
		Auth:       authenticator,
		Store:      pgStore,
		Writer:     writer,
		Logger:     logger,
	}

	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("warden server stopped")
}

// wireNotifications subscribes the notification manager to the decision
// and queue lifecycle events. Unsubscribes on shutdown.
func wireNotifications(ctx context.Context, bus *events.Bus, notifier *notify.Manager) {
	var cancels []func()

	cancels = append(cancels, bus.Subscribe(events.ItemAdded, func(payload any) {
		req, ok := payload.(*queue.Request)
		if !ok {
			return
		}
		notifier.Notify(ctx, notify.Message{
			Kind:      notify.KindApprovalNeeded,
			Title:     "Approval needed",
			Body:      req.Decision.Reason,
			ActionID:  req.Decision.ActionID,
			Timestamp: time.Now().UTC(),
			Details: map[string]any{
				"request_id": req.ID,
				"priority":   req.Priority,
				"risk_level": req.Decision.Assessment.LevelName,
			},
		})
	}))

	escalation := func(payload any) {
		var actionID, body string
		switch v := payload.(type) {
		case *queue.Request:
			actionID = v.Decision.ActionID
			body = v.Decision.Reason
		case *engine.Decision:
			actionID = v.ActionID
			body = v.Reason
		default:
			return
		}
		notifier.Notify(ctx, notify.Message{
			Kind:      notify.KindEscalation,
			Title:     "Escalation",
			Body:      body,
			ActionID:  actionID,
			Timestamp: time.Now().UTC(),
		})
	}
	cancels = append(cancels, bus.Subscribe(events.ItemEscalated, escalation))
	cancels = append(cancels, bus.Subscribe(events.DecisionEscalated, escalation))

	result := func(payload any) {
		req, ok := payload.(*queue.Request)
		if !ok {
			return
		}
		notifier.Notify(ctx, notify.Message{
			Kind:      notify.KindDecisionResult,
			Title:     "Approval " + req.Status,
			Body:      req.Feedback,
			ActionID:  req.Decision.ActionID,
			Timestamp: time.Now().UTC(),
			Details:   map[string]any{"reviewed_by": req.ReviewedBy},
		})
	}
	cancels = append(cancels, bus.Subscribe(events.ItemApproved, result))
	cancels = append(cancels, bus.Subscribe(events.ItemRejected, result))

	go func() {
		<-ctx.Done()
		for _, cancel := range cancels {
			cancel()
		}
	}()
}

// runDailySummary sends a pending-queue digest once a day.
func runDailySummary(ctx context.Context, q *queue.Queue, notifier *notify.Manager) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := q.GetSummary()
			notifier.Notify(ctx, notify.Message{
				Kind:      notify.KindDailySummary,
				Title:     "Daily approval summary",
				Body:      fmt.Sprintf("%d pending requests, $%.2f total value", s.Total, s.TotalValue),
				Timestamp: time.Now().UTC(),
				Details: map[string]any{
					"by_category":   s.ByCategory,
					"by_risk":       s.ByRisk,
					"average_score": s.AverageScore,
				},
			})
		}
	}
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
