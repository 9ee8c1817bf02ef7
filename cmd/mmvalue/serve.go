package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/mmvalue/internal/cache"
	"github.com/sawpanic/mmvalue/internal/config"
	httpapi "github.com/sawpanic/mmvalue/internal/interfaces/http"
	"github.com/sawpanic/mmvalue/internal/metrics"
	"github.com/sawpanic/mmvalue/internal/valuation/service"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the valuation API",
		Long:  "Starts the JSON API with /health, /metrics and the /v1 valuation endpoints",
		RunE:  a.runServe,
	}

	cmd.Flags().String("host", "", "HTTP server host, overrides config")
	cmd.Flags().Int("port", 0, "HTTP server port, overrides config")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		a.cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		a.cfg.Server.Port = port
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry(nil)
	memo, cacheState, closeCache, err := buildCache(ctx, a.cfg, reg)
	if err != nil {
		return err
	}
	defer closeCache()

	valuator := a.valuator().WithRecorder(reg)
	depth := a.depthCalculator()
	mm, err := service.NewMarketMakerService(valuator)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(a.cfg, httpapi.Dependencies{
		Valuator:   valuator,
		Depth:      depth,
		Weights:    a.weights,
		Analysis:   service.NewOrchestrator(service.NewEffectiveDepthService(depth), mm),
		Bounds:     &a.tuning.Bounds,
		Memo:       memo,
		Metrics:    reg,
		CacheState: cacheState,
		Version:    version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildCache assembles the configured result cache. Redis must answer a
// ping within the backoff budget; after that an open circuit bypasses it.
func buildCache(ctx context.Context, cfg *config.Config, reg *metrics.Registry) (*cache.Memo, func() string, func(), error) {
	noop := func() {}

	switch cfg.Cache.Backend {
	case "none":
		log.Info().Msg("Result cache disabled")
		return nil, nil, noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		rc := cache.NewRedisCache(client, cfg.Cache.Prefix, cfg.Cache.OpTimeout)
		if err := cache.WaitReady(ctx, rc, cfg.Backoff.Initial, cfg.Backoff.Max, cfg.Backoff.MaxElapsed); err != nil {
			client.Close()
			return nil, nil, noop, err
		}

		guarded := cache.NewBreakerCache(rc, cache.DefaultBreakerConfig(), reg.RecordBreakerChange)
		log.Info().Str("addr", cfg.Cache.RedisAddr).Dur("ttl", cfg.Cache.TTL).Msg("Redis result cache ready")
		return cache.NewMemo(guarded, cfg.Cache.TTL, reg), guarded.State, func() { client.Close() }, nil

	default:
		log.Info().Dur("ttl", cfg.Cache.TTL).Msg("In-memory result cache")
		return cache.NewMemo(cache.NewMemory(), cfg.Cache.TTL, reg), nil, noop, nil
	}
}
