package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/watchlink/internal/adapter/ble"
	httpadapter "github.com/couchcryptid/watchlink/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/watchlink/internal/adapter/kafka"
	"github.com/couchcryptid/watchlink/internal/adapter/mapbox"
	natsadapter "github.com/couchcryptid/watchlink/internal/adapter/nats"
	"github.com/couchcryptid/watchlink/internal/config"
	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/feed"
	"github.com/couchcryptid/watchlink/internal/location"
	"github.com/couchcryptid/watchlink/internal/observability"
	"github.com/couchcryptid/watchlink/internal/overlay"
	"github.com/couchcryptid/watchlink/internal/pipeline"
	"github.com/couchcryptid/watchlink/internal/radio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	view := overlay.New(overlay.DefaultTileURL)

	// Point feed: load once up front; a failure leaves the layer empty.
	fetcher := feed.NewFetcher(cfg.FeedSource, cfg.FeedTimeout)
	loader := feed.NewLoader(fetcher, cfg.ColorRamp, view, nil, logger, metrics)
	initCtx, cancelInit := context.WithTimeout(ctx, cfg.FeedTimeout)
	_, _ = loader.Load(initCtx)
	cancelInit()

	var refresher *feed.Refresher
	if cfg.FeedRefreshInterval > 0 {
		refresher = feed.NewRefresher(loader, cfg.FeedRefreshInterval, cfg.FeedTimeout, logger)
		if err := refresher.Start(); err != nil {
			logger.Error("feed refresh disabled", "error", err)
		}
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.ReverseGeocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var closers []namedCloser

	var source location.Source
	switch cfg.LocationSource {
	case config.LocationKafka:
		reader := kafkaadapter.NewReader(cfg, logger)
		closers = append(closers, namedCloser{"kafka reader", reader})
		source = reader
	default:
		source = location.NewSimSource(location.SimConfig{
			CenterLat: cfg.SimCenterLat,
			CenterLon: cfg.SimCenterLon,
			Interval:  cfg.SimInterval,
		}, nil)
	}

	checkers := []sharedobs.ReadinessChecker{}

	var sink pipeline.SampleSink
	switch cfg.SampleSink {
	case config.SinkKafka:
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, namedCloser{"kafka writer", writer})
		sink = writer
	case config.SinkNATS:
		publisher, err := natsadapter.NewPublisher(cfg, logger)
		if err != nil {
			logger.Error("failed to connect sample sink", "error", err)
			os.Exit(1)
		}
		closers = append(closers, namedCloser{"nats publisher", publisher})
		checkers = append(checkers, publisher)
		sink = publisher
	}

	// Wearable link. The pipeline and HTTP server take interfaces, so a nil
	// session must stay a nil interface.
	var session *radio.Session
	var wearable pipeline.Wearable
	var controller httpadapter.RadioController
	if cfg.RadioEnabled {
		link, err := ble.NewLink(cfg.RadioProfile, logger)
		if err != nil {
			logger.Error("invalid radio profile", "error", err)
			os.Exit(1)
		}
		session = radio.NewSession(link, nil, logger, metrics)
		wearable = session
		controller = session
	}

	transformer := pipeline.NewTransformer(geocoder, nil, logger)
	p := pipeline.New(source, transformer, view, wearable, sink, logger, metrics)
	checkers = append([]sharedobs.ReadinessChecker{p}, checkers...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:   readinessGroup(checkers),
		Overlay: view,
		Radio:   controller,
		Feed:    loader,
		Samples: p,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if session != nil && cfg.RadioAutoconnect {
		go func() {
			// Failure is reflected in the session status.
			_ = session.Connect(ctx)
		}()
	}

	// Start sample pipeline.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if refresher != nil {
		refresher.Stop()
	}

	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if session != nil {
		session.Disconnect(shutdownCtx)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "component", c.name, "error", err)
		}
	}

	logger.Info("shutdown complete")
}

type namedCloser struct {
	name string
	io.Closer
}

// readinessGroup is ready when every member is.
type readinessGroup []sharedobs.ReadinessChecker

func (g readinessGroup) CheckReadiness(ctx context.Context) error {
	for _, c := range g {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
