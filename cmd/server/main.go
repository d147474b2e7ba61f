// Package main runs the launchpad HTTP server.
//
// Configuration comes from LAUNCHPAD_* environment variables (and .env).
// Storage is in-memory or PostgreSQL with a ClickHouse event archive.
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"token-launchpad/internal/api"
	"token-launchpad/internal/clock"
	"token-launchpad/internal/config"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/launchpad"
	"token-launchpad/internal/logging"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/storage"
	chstore "token-launchpad/internal/storage/clickhouse"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/storage/migrations"
	pgstore "token-launchpad/internal/storage/postgres"
	"token-launchpad/internal/token"
	"token-launchpad/internal/token/stub"
)

// stores holds every storage implementation the server wires.
type stores struct {
	launches    storage.LaunchStore
	platform    storage.PlatformStore
	settlements storage.SettlementStore
	events      storage.EventStore
	archive     storage.EventArchive
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry.ConfigureLockDetection(cfg.LockWaitTimeout, logger)

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	tok := createTokenClient(cfg, logger)

	broadcaster := events.NewBroadcaster()
	eventLog := events.NewLog(st.events, logger,
		events.WithArchive(st.archive),
		events.WithArchiveBatch(cfg.ArchiveBatch),
		events.WithBroadcaster(broadcaster),
	)

	fee := cfg.FeeBasisPoints
	svc, err := launchpad.New(ctx, launchpad.Deps{
		Launches:    st.launches,
		Platform:    st.platform,
		Settlements: st.settlements,
		Events:      eventLog,
		Token:       tok,
		Clock:       clock.NewInterval(cfg.Genesis, cfg.BlockInterval),
		Logger:      logger,
	}, launchpad.Options{
		Owner:               cfg.Owner,
		Self:                cfg.Self,
		FeeRecipient:        cfg.FeeRecipient,
		FeeBasisPoints:      &fee,
		RequireTokenDeposit: cfg.RequireTokenDeposit,
	})
	if err != nil {
		return fmt.Errorf("create launchpad: %w", err)
	}
	if _, err := svc.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile settlements: %w", err)
	}

	apiServer := api.NewServer(api.Options{
		Service:          svc,
		Events:           eventLog,
		Logger:           logger,
		StrictIdentities: cfg.StrictIdentities,
		StreamBuffer:     cfg.StreamBuffer,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		return serve(httpServer)
	})
	g.Go(func() error {
		logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		return serve(metricsServer)
	})
	g.Go(func() error {
		return eventLog.Run(gctx, cfg.ArchiveFlushInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return errors.Join(
			httpServer.Shutdown(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", srv.Addr, err)
	}
	return nil
}

// createStores builds memory stores, or PostgreSQL stores plus the
// ClickHouse archive after applying migrations to both.
func createStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		logger.Info("using in-memory storage")
		return &stores{
			launches:    memory.NewLaunchStore(),
			platform:    memory.NewPlatformStore(),
			settlements: memory.NewSettlementStore(),
			events:      memory.NewEventStore(),
			archive:     memory.NewEventArchive(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Info("postgres migrations applied", zap.Strings("files", applied))

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return &stores{
		launches:    pgstore.NewLaunchStore(pool),
		platform:    pgstore.NewPlatformStore(pool),
		settlements: pgstore.NewSettlementStore(pool),
		events:      pgstore.NewEventStore(pool),
		archive:     chstore.NewEventArchive(chConn),
	}, cleanup, nil
}

// createTokenClient returns the JSON-RPC token client, or an in-memory
// token contract when no endpoint is configured (memory mode only).
func createTokenClient(cfg *config.Config, logger *zap.Logger) token.Client {
	if cfg.TokenRPCEndpoint != "" {
		return token.NewHTTPClient(cfg.TokenRPCEndpoint, token.WithTimeout(cfg.TokenRPCTimeout))
	}

	logger.Warn("no token endpoint configured, using in-memory token contract")
	c := stub.NewClient(cfg.Self)
	c.Mint(domain.NativeToken, cfg.Self, domain.MaxAmount())
	return c
}
