package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryanwahyu/fileguard/internal/application"
	appfiles "github.com/bryanwahyu/fileguard/internal/application/files"
	appsec "github.com/bryanwahyu/fileguard/internal/application/security"
	"github.com/bryanwahyu/fileguard/internal/config"
	"github.com/bryanwahyu/fileguard/internal/domain/activity"
	domfiles "github.com/bryanwahyu/fileguard/internal/domain/files"
	"github.com/bryanwahyu/fileguard/internal/domain/threats"
	openaiclient "github.com/bryanwahyu/fileguard/internal/infra/ai/openai"
	"github.com/bryanwahyu/fileguard/internal/infra/alert"
	mysqlp "github.com/bryanwahyu/fileguard/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/fileguard/internal/infra/db/postgres"
	"github.com/bryanwahyu/fileguard/internal/infra/httpserver"
	"github.com/bryanwahyu/fileguard/internal/infra/ledger"
	minioStore "github.com/bryanwahyu/fileguard/internal/infra/storage"
	"github.com/bryanwahyu/fileguard/internal/logging"
	"github.com/bryanwahyu/fileguard/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// connect database, mysql or postgres depending on config
	var (
		fileRepo    domfiles.Repository
		threatRepo  threats.Registry
		auditRepo   activity.Archive
		healthCheck middleware.HealthChecker
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatal("postgres connect error", zap.Error(err))
		}
		defer db.Close()

		fr := postgresp.NewFileRepository(db)
		tr := postgresp.NewThreatRepository(db)
		ar := postgresp.NewAuditRepository(db)
		for _, init := range []func(context.Context) error{fr.InitSchema, tr.InitSchema, ar.InitSchema} {
			if err := init(ctx); err != nil {
				logger.Fatal("schema init error", zap.Error(err))
			}
		}
		fileRepo, threatRepo, auditRepo = fr, tr, ar
		healthCheck = &middleware.DatabaseHealthChecker{DB: db}

	case "mysql", "":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Fatal("mysql connect error", zap.Error(err))
		}
		defer db.Close()

		fr := mysqlp.NewFileRepository(db)
		tr := mysqlp.NewThreatRepository(db)
		ar := mysqlp.NewAuditRepository(db)
		for _, init := range []func(context.Context) error{fr.InitSchema, tr.InitSchema, ar.InitSchema} {
			if err := init(ctx); err != nil {
				logger.Fatal("schema init error", zap.Error(err))
			}
		}
		fileRepo, threatRepo, auditRepo = fr, tr, ar
		healthCheck = &middleware.DatabaseHealthChecker{DB: db}

	default:
		logger.Fatal("unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		logger.Fatal("minio init error", zap.Error(err))
	}

	clock := application.SystemClock{}

	// in-memory activity ledger and the anomaly detector over it
	lg := ledger.NewMemory(clock, cfg.Security.RetentionCap)
	detector := activity.NewDetector(lg, clock, activity.DetectorConfig{
		RapidAccessLimit: cfg.Security.RapidAccessLimit,
		MultiIPLimit:     cfg.Security.MultiIPLimit,
		MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
	})

	dispatcher := alert.NewDispatcher(logger, cfg.Security.AlertBuffer)
	defer dispatcher.Close()

	secSvc := &appsec.Service{
		Ledger:   lg,
		Detector: detector,
		Registry: threatRepo,
		Archive:  auditRepo,
		Notifier: dispatcher,
		Clock:    clock,
		Log:      logger,
	}

	filesSvc := &appfiles.Service{
		Repo:     fileRepo,
		Objects:  store,
		Security: secSvc,
		Clock:    clock,
		Log:      logger,
	}
	if cfg.OpenAI.APIKey != "" {
		filesSvc.Analyzer = openaiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	} else {
		logger.Warn("openai api key not set, content analysis disabled")
	}

	health := middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": healthCheck,
		"storage":  &middleware.PingHealthChecker{Target: store},
	})

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.Logging(logger))
	mux.Use(middleware.MetricsMiddleware)

	// service-to-service surface: API keys, no user tokens
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Route("/internal", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
			r.Mount("/", httpserver.NewInternalRouter(secSvc, logger))
		})
	}

	// user-facing surface: JWT + per-user rate limit
	mux.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth([]byte(cfg.Auth.JWTSecret)))
		r.Use(middleware.RateLimit(100, 10))
		r.Mount("/", httpserver.NewRouter(filesSvc, secSvc, health, logger))
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
