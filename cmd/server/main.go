// v1
// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/synergy-ai/optimizer/internal/cache"
	"github.com/synergy-ai/optimizer/internal/config"
	"github.com/synergy-ai/optimizer/internal/core"
	"github.com/synergy-ai/optimizer/internal/httpapi"
	"github.com/synergy-ai/optimizer/internal/kafkaio"
	"github.com/synergy-ai/optimizer/internal/logging"
	"github.com/synergy-ai/optimizer/internal/mqttio"
	"github.com/synergy-ai/optimizer/internal/observability"
	"github.com/synergy-ai/optimizer/internal/resolve"
)

func main() {
	cfg := config.FromEnv()

	lg, err := logging.New(cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer lg.Close()
	log := lg.Logger

	log.Info("config loaded", "bind", cfg.HTTPBind, "kafka", cfg.KafkaBrokers, "mqtt", cfg.MQTTBroker, "cacheTTL", cfg.CacheTTL)

	catalog, err := resolve.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Error("strategy catalog load failed", "path", cfg.CatalogPath, "err", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	var sink core.EventSink
	var kafkaSink *kafkaio.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink = kafkaio.NewSink(cfg, log.With("component", "events"), metrics)
		sink = kafkaSink
		defer kafkaSink.Close()
	}

	queryCache := cache.New[any](cfg.CacheTTL, metrics)
	engine := core.New(log, core.Options{Catalog: catalog, Sink: sink, Cache: queryCache, Outcomes: metrics})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.KafkaBrokers) > 0 {
		consumers := kafkaio.New(cfg, log.With("component", "kafka"), engine, metrics)
		consumers.Run(ctx)
		defer consumers.Close()
	}

	if cfg.MQTTBroker != "" {
		sub, err := mqttio.NewSubscriber(cfg, log.With("component", "mqtt"), engine, metrics)
		if err != nil {
			log.Error("mqtt connect failed", "err", err)
			os.Exit(1)
		}
		if err := sub.Start(); err != nil {
			log.Error("mqtt subscribe failed", "err", err)
			os.Exit(1)
		}
		defer sub.Close()
	}

	h := &httpapi.Handlers{
		Log:     log,
		Engine:  engine,
		Cache:   queryCache,
		Metrics: metrics,
	}
	srv := &http.Server{Addr: cfg.HTTPBind, Handler: httpapi.NewRouter(h)}

	go func() {
		log.Info("http server listening", "bind", cfg.HTTPBind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
		}
	}()
	log.Info("optimizer service started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	log.Info("optimizer service stopped")
}
