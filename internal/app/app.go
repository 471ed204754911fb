// Package app assembles the service from its configuration and supervises
// its background loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"request-service/internal/api"
	"request-service/internal/auth"
	"request-service/internal/catalog"
	"request-service/internal/config"
	"request-service/internal/cooldown"
	"request-service/internal/live"
	"request-service/internal/migrations"
	"request-service/internal/model"
	"request-service/internal/moderation"
	"request-service/internal/realtime"
	"request-service/internal/requests"
	"request-service/internal/storage/memory"
	"request-service/internal/storage/postgres"
)

// Store is everything the service persists.
type Store interface {
	requests.Store
	moderation.FilterStore
	moderation.BanStore
}

type App struct {
	cfg config.Config
	log *zap.Logger

	feed     *live.Feed
	hub      *realtime.Hub
	cooldown *cooldown.Tracker
	requests *requests.Service
	handler  http.Handler

	closers []func()
}

// New connects the backends named in cfg and wires the components.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	var bus live.Bus = live.NewLocalBus()
	if rdb != nil {
		bus = live.NewRedisBus(rdb, live.DefaultChannel)
	}
	a.feed = live.NewFeed(bus, log.Named("live"))

	filters := moderation.NewFilters(store, a.feed, log.Named("moderation"))
	bans := moderation.NewBans(store, a.feed, log.Named("moderation"))

	opts := requests.Options{
		ArchiveCap:     cfg.ArchiveCap,
		RejectExplicit: cfg.RejectExplicit,
	}
	if cfg.Cooldown > 0 {
		a.cooldown = cooldown.New(cfg.Cooldown)
		opts.Cooldown = a.cooldown
	}
	a.requests = requests.NewService(store, bans, filters, a.feed, log.Named("requests"), opts)

	registerLoaders(a.feed, a.requests, filters, bans)

	cat := a.buildCatalog(rdb)
	authn := auth.New(cfg.JWTSecret, cfg.ModeratorPasswordHash, cfg.TokenTTL)

	a.hub = realtime.NewHub(a.feed, log.Named("realtime"))
	ws := realtime.NewServer(a.hub, authn, cfg.CORSOrigins, log.Named("realtime"))

	srv := api.NewServer(a.requests, filters, bans, cat, authn, http.HandlerFunc(ws.HandleWS), api.NewMetrics(), log.Named("http"), api.Config{
		CORSOrigins: cfg.CORSOrigins,
		BodyLimit:   cfg.BodyLimit,
		CatalogRPM:  cfg.CatalogRPM,
	})
	a.handler = srv.Router()
	return a, nil
}

func (a *App) openStore(ctx context.Context) (Store, error) {
	if a.cfg.Store != config.StorePostgres {
		a.log.Info("using in-memory store")
		return memory.New(), nil
	}
	if err := migrations.Run(ctx, a.cfg.DatabaseURL); err != nil {
		return nil, err
	}
	pool, err := postgres.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)
	a.log.Info("using postgres store")
	return postgres.New(pool), nil
}

func (a *App) buildCatalog(rdb *redis.Client) catalog.Catalog {
	if !a.cfg.CatalogEnabled() {
		a.log.Warn("spotify credentials missing, catalog lookups disabled")
		return catalog.Disabled{}
	}
	var cat catalog.Catalog = catalog.NewSpotifyClient(catalog.SpotifyConfig{
		ClientID:     a.cfg.SpotifyClientID,
		ClientSecret: a.cfg.SpotifyClientSecret,
		Timeout:      a.cfg.CatalogTimeout,
		PageSize:     a.cfg.SearchPageSize,
	})
	if rdb != nil {
		cat = catalog.NewCachedCatalog(cat, rdb, a.cfg.CatalogCacheTTL, a.log.Named("catalog"))
	}
	return cat
}

func registerLoaders(feed *live.Feed, reqs *requests.Service, filters *moderation.Filters, bans *moderation.Bans) {
	feed.Register(live.Requests, loader(func(ctx context.Context) ([]model.Request, error) {
		return reqs.Requests(ctx, requests.SortByDate)
	}))
	feed.Register(live.TopRequests, loader(func(ctx context.Context) ([]model.Request, error) {
		return reqs.Top(ctx, requests.DefaultTopLimit)
	}))
	feed.Derive(live.Requests, live.TopRequests)
	feed.Register(live.Archive, loader(reqs.Archive))
	feed.Register(live.History, loader(reqs.History))
	feed.Register(live.Blacklist, loader(filters.Blacklist))
	feed.Register(live.ForbiddenWords, loader(filters.Words))
	feed.Register(live.BannedDevices, loader(bans.List))
}

// loader adapts a list query to live.Loader. Empty collections are sent
// as [] rather than null.
func loader[T any](list func(ctx context.Context) ([]T, error)) live.Loader {
	return func(ctx context.Context) (any, error) {
		items, err := list(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
}

// Handler is the HTTP entry point.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP and runs the background loops until ctx is done or one
// of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		a.log.Info("request-service listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := a.feed.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("live feed: %w", err)
		}
		return nil
	})
	g.Go(func() error { return a.hub.Run(gctx) })
	g.Go(func() error { return a.requests.RunArchiveJanitor(gctx, a.cfg.JanitorInterval) })
	if a.cooldown != nil {
		g.Go(func() error { return a.cooldown.Run(gctx) })
	}

	err := g.Wait()
	a.Close()
	return err
}

// Close releases the backends. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
