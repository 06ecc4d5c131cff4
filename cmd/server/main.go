package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/ai"
	"github.com/jimdaga/interview-ace/internal/auth"
	"github.com/jimdaga/interview-ace/internal/config"
	"github.com/jimdaga/interview-ace/internal/database"
	"github.com/jimdaga/interview-ace/internal/email"
	"github.com/jimdaga/interview-ace/internal/health"
	"github.com/jimdaga/interview-ace/internal/logging"
	"github.com/jimdaga/interview-ace/internal/models"
	"github.com/jimdaga/interview-ace/internal/pdf"
	"github.com/jimdaga/interview-ace/internal/report"
	"github.com/jimdaga/interview-ace/internal/reports"
	"github.com/jimdaga/interview-ace/internal/server"
	"github.com/jimdaga/interview-ace/internal/streams"
	"github.com/jimdaga/interview-ace/internal/worker"
)

// Run modes.
const (
	modeServer   = "server"
	modeWorker   = "worker"
	modeEmbedded = "embedded"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	switch cfg.Mode {
	case modeServer, modeWorker, modeEmbedded:
	default:
		return fmt.Errorf("unknown MODE %q (want server, worker or embedded)", cfg.Mode)
	}

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			return fmt.Errorf("failed to initialize encryption: %w", err)
		}
	} else {
		logger.Warn("ENCRYPTION_KEY not set, OAuth tokens will be stored unencrypted")
	}

	db, err := database.Init(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, logger); err != nil {
		return err
	}
	if cfg.SeedDevData {
		if err := database.SeedDevData(db, logger); err != nil {
			return fmt.Errorf("failed to seed dev data: %w", err)
		}
	}

	gen, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting InterviewAce", "mode", cfg.Mode, "env", cfg.Env)

	switch cfg.Mode {
	case modeWorker:
		return runWorker(cfg, db, gen, logger)
	case modeServer:
		return serveHTTP(ctx, cfg, db, gen, logger)
	default:
		stopBackground, err := startBackground(cfg, db, gen, logger)
		if err != nil {
			return err
		}
		defer stopBackground()
		return serveHTTP(ctx, cfg, db, gen, logger)
	}
}

func newGenerator(cfg *config.Config, logger *slog.Logger) (*reports.Generator, error) {
	engine, err := pdf.New(cfg.PDFEngine, cfg.BrowserPaths, cfg.PDFTimeout, logger)
	if err != nil {
		return nil, err
	}

	var templates fs.FS = report.EmbeddedTemplates()
	if cfg.ReportTemplateDir != "" {
		templates = report.TemplatesFromDir(cfg.ReportTemplateDir)
		logger.Info("Using report templates from disk", "dir", cfg.ReportTemplateDir)
	}

	renderer := report.NewRenderer(templates)
	if _, err := renderer.Load(); err != nil {
		// Requests report the template error themselves.
		logger.Error("Report templates failed to load", "error", err)
	}
	return reports.NewGenerator(renderer, engine), nil
}

func newGateway(cfg *config.Config, logger *slog.Logger) *ai.Gateway {
	if cfg.AIStubMode {
		logger.Warn("AI gateway running in stub mode")
		return ai.NewGateway(&ai.StubClient{}, logger)
	}
	return ai.NewGateway(ai.NewOpenAIClient(ai.OpenAIConfig{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAIModel,
		EmbedModel: cfg.OpenAIEmbedModel,
	}, logger), logger)
}

func serveHTTP(ctx context.Context, cfg *config.Config, db *gorm.DB, gen *reports.Generator, logger *slog.Logger) error {
	// Without a queue premium reports render inline.
	var enqueuer reports.Enqueuer
	client, err := worker.NewClient(cfg.RedisURL)
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = worker.PingRedis(pingCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			client.Close()
		}
	}
	if err != nil {
		logger.Warn("Report queue unavailable, premium reports will render inline", "error", err)
	} else {
		defer client.Close()
		enqueuer = client
	}

	router := server.NewRouter(server.Deps{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Verifier:     auth.NewTokenVerifier(cfg.JWTSecret),
		Generator:    gen,
		Enqueuer:     enqueuer,
		Gateway:      newGateway(cfg, logger),
		OAuthEnabled: auth.InitProviders(cfg, logger),
		Checks: []health.Check{{
			Name: "database",
			Fn:   func(ctx context.Context) error { return database.Ping(ctx, db) },
		}},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func workerDeps(cfg *config.Config, db *gorm.DB, gen *reports.Generator, logger *slog.Logger) (worker.Deps, func(), error) {
	publisher, err := streams.NewPublisher(cfg.RedisURL)
	if err != nil {
		return worker.Deps{}, nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	return worker.Deps{
		DB:            db,
		Generator:     gen,
		Publisher:     publisher,
		RetentionDays: cfg.ReportRetentionDays,
		Logger:        logger,
	}, func() { publisher.Close() }, nil
}

// startSide starts the scheduler and the report mailer.
func startSide(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (func(), error) {
	stopScheduler, err := worker.StartScheduler(cfg, logger)
	if err != nil {
		return nil, err
	}

	mailer := email.New(email.Config{
		Domain: cfg.MailgunDomain,
		APIKey: cfg.MailgunAPIKey,
		From:   cfg.MailFrom,
	}, logger)
	stopConsumer, err := streams.StartEventConsumer(cfg.RedisURL, streams.HandleReportEvent(db, mailer, logger), logger)
	if err != nil {
		stopScheduler()
		return nil, err
	}

	return func() {
		stopConsumer()
		stopScheduler()
	}, nil
}

func runWorker(cfg *config.Config, db *gorm.DB, gen *reports.Generator, logger *slog.Logger) error {
	deps, closePublisher, err := workerDeps(cfg, db, gen, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	stopSide, err := startSide(cfg, db, logger)
	if err != nil {
		return err
	}
	defer stopSide()

	return worker.Run(cfg, deps)
}

// startBackground runs the worker next to the HTTP server.
func startBackground(cfg *config.Config, db *gorm.DB, gen *reports.Generator, logger *slog.Logger) (func(), error) {
	deps, closePublisher, err := workerDeps(cfg, db, gen, logger)
	if err != nil {
		return nil, err
	}

	stopWorker, err := worker.Start(cfg, deps)
	if err != nil {
		closePublisher()
		return nil, err
	}

	stopSide, err := startSide(cfg, db, logger)
	if err != nil {
		stopWorker()
		closePublisher()
		return nil, err
	}

	return func() {
		stopSide()
		stopWorker()
		closePublisher()
	}, nil
}
