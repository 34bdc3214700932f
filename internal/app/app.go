package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/orgball2608/reel-feed-service/internal/feed"
	"github.com/orgball2608/reel-feed-service/internal/feed/feedimpl"
	"github.com/orgball2608/reel-feed-service/internal/httpcache"
	"github.com/orgball2608/reel-feed-service/internal/mediacache"
	_ "github.com/orgball2608/reel-feed-service/internal/migrations"
	"github.com/orgball2608/reel-feed-service/internal/pgx"
	"github.com/orgball2608/reel-feed-service/internal/playback"
	"github.com/orgball2608/reel-feed-service/internal/postsource"
	"github.com/orgball2608/reel-feed-service/internal/ratelimit"
	"github.com/orgball2608/reel-feed-service/internal/videocache"
	"github.com/orgball2608/reel-feed-service/pkg/config"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
		httpcache.New,
	),
	fx.Provide(
		func(client *httpcache.Client, cfg *config.Config, log logger.Logger) *mediacache.Cache {
			return mediacache.New(cfg, client, log)
		},
		fx.Annotate(
			func(client *httpcache.Client, log logger.Logger) *videocache.HTTPProbe {
				return videocache.NewHTTPProbe(client, log)
			},
			fx.As(new(videocache.MetadataLoader)),
		),
		videocache.New,
		fx.Annotate(
			func(client *httpcache.Client) *playback.HTTPSegmentSource {
				return playback.NewHTTPSegmentSource(client)
			},
			fx.As(new(playback.SegmentSource)),
		),
		playback.NewManager,
		func() ratelimit.Limiter {
			return ratelimit.NewInMemoryLimiter(1, time.Second, 4)
		},
		fx.Annotate(
			feedimpl.New,
			fx.As(new(feed.Client)),
		),
	),
	postsource.Module,
	fx.Invoke(
		func(c *config.Config) error {
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}

			db, err := sql.Open("postgres", c.GetDSN())
			if err != nil {
				return err
			}
			defer db.Close()

			return goose.Up(db, ".")
		}),
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, feedClient feed.Client,
	byteCache *httpcache.Client, cleanup *postsource.CleanupScheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {

			go startHttpServer(log, cfg)

			ctx := context.Background()
			if err := cleanup.Schedule(ctx); err != nil {
				log.Error("Failed to schedule post cleanup", "Error", err)
			}

			go func() {
				if _, err := feedClient.LoadFirstPage(ctx); err != nil {
					log.Error("Initial feed load failed", "Error", err)
					return
				}
				feedClient.SetActiveIndex(ctx, 0)
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			feedClient.Teardown()
			byteCache.Close()
			return nil
		},
	})
}

func startHttpServer(log logger.Logger, cfg *config.Config) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCheckHandler(w, r, log)
	})
	mux.Handle("/metrics", promhttp.Handler())

	log.Info(fmt.Sprintf("Starting server on :%d", cfg.App.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), mux); err != nil {
		log.Error("Server failed to start: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request, logger logger.Logger) {
	logger.Info("Health check request received", "Method", r.Method, "URL", r.URL.String())
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.Error("Failed to write response", "Error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
