package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/estensen/roi-dashboard/internal/api"
	"github.com/estensen/roi-dashboard/internal/cache"
	"github.com/estensen/roi-dashboard/internal/countdown"
	"github.com/estensen/roi-dashboard/internal/database"
	"github.com/estensen/roi-dashboard/internal/feed"
	"github.com/estensen/roi-dashboard/internal/poller"
	"github.com/estensen/roi-dashboard/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the wallet API and serve the reconciled dashboard over HTTP",
		Long: `Polls the wallet API every poll.interval, reconciles the feeds, keeps
live ROI countdowns and serves them over HTTP.

Optional sinks are enabled in config: redis (feed cache), clickhouse
(ledger and daily summaries) and minio (snapshot archive).

Endpoints:
  GET /transactions?search=&status=&type=&sort=&order=&page=&pageSize=
  GET /countdowns
  GET /summary?date=YYYY-MM-DD
  GET /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) runServe(ctx context.Context) (err error) {
	cfg := a.cfg
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = errors.Join(err, closers[i]())
		}
	}()

	var source feed.Source = feed.NewClient(cfg.API.BaseURL,
		feed.WithToken(cfg.API.Token),
		feed.WithPageSize(cfg.API.PageSize),
		feed.WithMaxPages(cfg.API.MaxPages),
		feed.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		feed.WithTimeout(cfg.API.Timeout),
		feed.WithLogger(a.logger),
	)

	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return err
		}
		closers = append(closers, rc.Close)
		source = cache.NewSource(source, rc, cfg.API.Owner, cfg.Redis.TTL, a.logger)
	}

	var (
		ledger    database.LedgerStore
		summaries api.SummaryStore
		archive   storage.Storage
	)

	if cfg.ClickHouse.Enabled {
		conn, err := database.NewClickHouseConnection(ctx, database.Options{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})
		if err != nil {
			return err
		}
		closers = append(closers, conn.Close)
		if err := database.EnsureSchema(ctx, conn); err != nil {
			return err
		}
		loader := database.NewClickHouseLoader(conn)
		ledger, summaries = loader, loader
	}

	if cfg.MinIO.Enabled {
		m, err := storage.NewMinIOStorage(ctx, storage.MinIOOptions{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return err
		}
		archive = m
	}

	scheduler, err := countdown.NewScheduler(
		countdown.WithInterval(cfg.Countdown.Interval),
		countdown.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	closers = append(closers, scheduler.Stop)

	presenterOpts, err := a.presenterOptions()
	if err != nil {
		return err
	}

	pollerOpts := []poller.Option{
		poller.WithDeduplicator(a.deduplicator()),
		poller.WithPresenterOptions(presenterOpts...),
		poller.WithInterval(cfg.Poll.Interval),
		poller.WithRefreshTimeout(cfg.API.Timeout * 4),
		poller.WithLogger(a.logger),
	}
	if job := database.NewBatchJob(ledger, archive, a.logger); job.Enabled() {
		pollerOpts = append(pollerOpts, poller.WithSink(job))
	}

	p, err := poller.New(source, scheduler, pollerOpts...)
	if err != nil {
		return err
	}
	if err := p.Start(); err != nil {
		return err
	}
	closers = append(closers, p.Stop)

	server := api.NewServer(p, scheduler, summaries, a.logger)
	if err := server.Serve(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
