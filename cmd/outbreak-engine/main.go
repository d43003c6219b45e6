package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jalrakshak/outbreak-engine/internal/api"
	"github.com/jalrakshak/outbreak-engine/internal/config"
	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/feed"
	"github.com/jalrakshak/outbreak-engine/internal/metrics"
	"github.com/jalrakshak/outbreak-engine/internal/patterns"
	"github.com/jalrakshak/outbreak-engine/internal/repo"
	"github.com/jalrakshak/outbreak-engine/internal/services"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting outbreak-engine",
		slog.String("grpc", cfg.Server.Address),
		slog.String("http", cfg.Server.HTTPAddress),
		slog.String("store", cfg.Store.Driver),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	thresholds, err := thresholdsFrom(cfg.Rules)
	if err != nil {
		logger.Error("invalid rule settings", slog.Any("error", err))
		os.Exit(1)
	}

	cacheProvider := openCache(logger, cfg.Cache)
	defer cacheProvider.Close()

	store, err := openStore(cfg.Store)
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	var hub *feed.Hub
	var publisher repo.AlertPublisher
	if cfg.Feed.Enabled {
		hub = feed.NewHub(logger, cfg.Feed.SendBuffer)
		publisher = hub
	}
	gateway := repo.NewPublishingGateway(store, publisher)

	detector := engine.NewDetector(logger, gateway, engine.SystemClock(), cacheProvider, engine.DetectorConfig{
		Thresholds: thresholds,
		AuthorTTL:  cfg.Cache.AuthorTTL,
	})
	miner := patterns.NewHotspotMiner(logger, gateway, cfg.Hotspots.Window, cacheProvider, cfg.Hotspots.CacheTTL)
	service := services.NewOutbreakService(logger, gateway, detector, miner, thresholds.Location)

	grpcServer, err := api.NewServer(cfg.Server, api.NewGRPCHandler(logger, service))
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var feedHandler http.Handler
	if hub != nil {
		feedHandler = hub
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddress,
		Handler:           api.NewRouter(api.NewHTTPHandler(logger, service), feedHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if hub != nil {
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("gRPC server listening", slog.String("address", grpcServer.Address()))
		return grpcServer.Start()
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("address", cfg.Server.HTTPAddress))
		return listenAndServe(httpServer)
	})
	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			return listenAndServe(metricsServer)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown", slog.Any("error", err))
		}
		grpcServer.Shutdown(shutdownCtx)
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", slog.Any("error", err))
			}
		}
		if err := service.Close(shutdownCtx); err != nil {
			logger.Warn("detection runs still in flight at shutdown", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("outbreak-engine exited", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
	logger.Info("outbreak-engine stopped")
}

func listenAndServe(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
