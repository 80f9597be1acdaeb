package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"heartapi/config"
	qhttp "heartapi/http"
	"heartapi/logging"
	"heartapi/ml"
	"heartapi/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.MustNewLogger(cfg.Environment, cfg.Log)
	defer logger.Sync()

	// 2. Load the bundle; the service never starts without one
	bundle, err := ml.LoadBundle(cfg.ModelPath)
	if err != nil {
		logger.Fatal("failed to load model bundle", zap.String("path", cfg.ModelPath), zap.Error(err))
	}
	predictor, err := service.FromBundle(bundle,
		service.WithCacheSize(cfg.Cache.Size),
		service.WithLogger(logger),
		service.WithModelType(ml.ModelType(bundle.Model)))
	if err != nil {
		logger.Fatal("bundle does not match the request schema", zap.String("path", cfg.ModelPath), zap.Error(err))
	}
	logger.Info("model bundle loaded",
		zap.String("path", cfg.ModelPath),
		zap.Time("created_at", bundle.Metadata.CreatedAt),
		zap.Float64("holdout_accuracy", bundle.Metadata.Evaluation.Accuracy))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.WatchBundle {
		watcher, err := service.NewBundleWatcher(cfg.ModelPath, logger)
		if err != nil {
			logger.Warn("bundle watcher disabled", zap.Error(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	// 3. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, predictor, logger)

	// 4. Serve until a signal arrives or the server fails
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if err := serve(server, quit, logger); err != nil {
		logger.Error("HTTP server failed", zap.Error(err))
		cancel()
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// lifecycle is the part of the HTTP server that serve drives.
type lifecycle interface {
	Start() error
	Stop() error
}

// serve starts srv and blocks until it fails or quit delivers a signal, in
// which case srv is stopped gracefully.
func serve(srv lifecycle, quit <-chan os.Signal, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		if err := srv.Stop(); err != nil {
			return err
		}
		return <-errCh
	}
}
