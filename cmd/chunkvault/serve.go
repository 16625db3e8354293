package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/mtiwari1/chunkvault/internal/catalog"
	"github.com/mtiwari1/chunkvault/internal/config"
	"github.com/mtiwari1/chunkvault/internal/grpcserver"
	"github.com/mtiwari1/chunkvault/internal/logging"
	"github.com/mtiwari1/chunkvault/internal/repository"
	"github.com/mtiwari1/chunkvault/internal/restapi"
	"github.com/mtiwari1/chunkvault/internal/storage"
	"github.com/mtiwari1/chunkvault/internal/worker"
	pb "github.com/mtiwari1/chunkvault/proto"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and REST servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CHUNKVAULT_CONFIG"), "path to YAML config file")
	return cmd
}

func serve(cfg *config.Config) error {
	// ── Structured logger ──
	logger, err := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Info("starting chunkvault", slog.String("version", Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Catalog repository: MySQL when configured, memory otherwise ──
	var repo repository.Repository
	if cfg.DatabaseDSN != "" {
		db, err := repository.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		mysqlRepo, err := repository.NewMySQLRepo(ctx, db)
		if err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		defer mysqlRepo.Close()
		repo = mysqlRepo
		logger.Info("database connected")
	} else {
		repo = repository.NewMemoryRepo()
		logger.Warn("no database configured, catalog kept in memory")
	}

	// ── Worker pool and catalog syncer ──
	pool := worker.NewPool(cfg.Workers, logger)
	pool.Start()
	logger.Info("worker pool started", slog.Int("workers", cfg.Workers))

	syncer := catalog.NewSyncer(pool, repo, logger)
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		syncer.Run()
	}()

	// ── Storage engine ──
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engine, err := storage.New(storage.Config{
		Retention: cfg.Retention,
		Compress:  cfg.Compress,
		Logger:    logger,
		Metrics:   storage.NewMetrics(reg),
		Observer:  syncer,
	})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	logger.Info("storage engine ready",
		slog.String("capacity", humanize.IBytes(storage.Capacity)),
		slog.Int("retention_keep", engine.RetentionKeep()),
		slog.Bool("compress", cfg.Compress),
	)

	errCh := make(chan error, 2)

	// ── gRPC server ──
	grpcSrv := grpc.NewServer(
		grpc.MaxRecvMsgSize(pb.MaxMessageSize),
		grpc.MaxSendMsgSize(pb.MaxMessageSize),
		grpc.UnaryInterceptor(grpcserver.UnaryLogger(logger)),
	)
	grpcImpl := grpcserver.NewServer(engine, logger)
	pb.RegisterStorageServiceServer(grpcSrv, grpcImpl)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}
	go func() {
		logger.Info("gRPC server listening", slog.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC serve: %w", err)
		}
	}()

	// ── REST API ──
	handler := restapi.NewHandler(grpcImpl, repo, reg, cfg.MaxBodyBytes, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	limiter := restapi.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Sweep(10 * time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      limiter.Middleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP serve: %w", err)
		}
	}()

	// ── Graceful shutdown (SIGINT / SIGTERM or a server failure) ──
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error("server failed", slog.String("error", serveErr.Error()))
	}

	// 1. Stop accepting new HTTP requests.
	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown", slog.String("error", err.Error()))
	}
	logger.Info("HTTP server stopped")

	// 2. Stop gRPC server gracefully.
	grpcSrv.GracefulStop()
	logger.Info("gRPC server stopped")

	// 3. Drain worker pool; the engine can no longer be mutated.
	pool.Shutdown()
	logger.Info("worker pool drained")

	// 4. Wait for the catalog to catch up.
	<-syncDone
	logger.Info("catalog sync finished")

	stats := engine.StorageAnalytics()
	logger.Info("chunkvault shutdown complete",
		slog.Uint64("files", stats.Count),
		slog.String("used", humanize.IBytes(stats.Used)),
	)
	return serveErr
}
