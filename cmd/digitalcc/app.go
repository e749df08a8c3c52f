package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/config"
	"github.com/coloradocollege/digitalcc/internal/db"
	dbBleve "github.com/coloradocollege/digitalcc/internal/db/bleve"
	dbRedis "github.com/coloradocollege/digitalcc/internal/db/redis"
	"github.com/coloradocollege/digitalcc/internal/domain/mods"
	logpkg "github.com/coloradocollege/digitalcc/internal/logger"
	"github.com/coloradocollege/digitalcc/internal/metrics"
	documentrepo "github.com/coloradocollege/digitalcc/internal/repository/document"
	"github.com/coloradocollege/digitalcc/internal/repository/respcache"
	searchrepo "github.com/coloradocollege/digitalcc/internal/repository/search"
	"github.com/coloradocollege/digitalcc/internal/transport/fedora"
	harvestuc "github.com/coloradocollege/digitalcc/internal/usecase/harvest"
	searchuc "github.com/coloradocollege/digitalcc/internal/usecase/search"
)

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  db.Store
	docs   *documentrepo.Repo
	cache  *respcache.Cache
	fedora *fedora.Client
}

func newApp(ctx context.Context, component string) (*app, error) {
	env := envFlag
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if levelFlag != "" {
		level = levelFlag
	}
	logger, err := logpkg.New(logpkg.Options{Env: env, Level: level, Component: component})
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Search.Driver, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Search.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("search engine not ready: %w", err)
	}
	logger.Info("connected to search engine",
		zap.String("driver", cfg.Search.Driver),
		zap.Strings("addrs", cfg.Search.Addrs),
	)

	metrics.Register()

	fc, err := fedora.NewClient(fedora.Config{
		RestURL:           cfg.Fedora.RestURL,
		RIURL:             cfg.Fedora.RIURL,
		Username:          cfg.Fedora.Username,
		Password:          cfg.Fedora.Password,
		Timeout:           time.Duration(cfg.Fedora.TimeoutSec) * time.Second,
		RequestsPerSecond: cfg.Fedora.RequestsPerSecond,
		Burst:             cfg.Fedora.Burst,
		MaxRetries:        cfg.Fedora.MaxRetries,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{
		env:    env,
		cfg:    cfg,
		logger: logger,
		store:  store,
		docs:   documentrepo.New(store, cfg.Search.Index, cfg.Search.KeyPrefix),
		fedora: fc,
	}
	if cfg.Cache.Enabled {
		a.cache = respcache.New(store, cfg.Search.KeyPrefix,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.CacheTotal, logger)
	}
	return a, nil
}

func openStore(cfg config.SearchConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverBleve:
		return dbBleve.NewStore(dbBleve.Config{Path: cfg.BlevePath})
	case config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
	}
	return nil, fmt.Errorf("unknown search driver %q", cfg.Driver)
}

// withLogger returns ctx carrying the app logger.
func (a *app) withLogger(ctx context.Context) context.Context {
	return logpkg.ContextWithLogger(ctx, a.logger)
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}

func (a *app) searchService() *searchuc.Service {
	repo := searchrepo.New(a.store, a.docs.Index(), a.docs.KeyPrefix())
	return searchuc.New(repo, a.docs, a.cache, searchuc.Config{
		RootPID:        a.cfg.Harvest.RootPID,
		BrowsePageSize: a.cfg.Search.BrowsePageSize,
		SearchPageSize: a.cfg.Search.SearchPageSize,
		MaxPageSize:    a.cfg.Search.MaxPageSize,
		FacetSize:      a.cfg.Search.FacetSize,
	})
}

func (a *app) harvestService() *harvestuc.Service {
	// a nil *respcache.Cache must not become a non-nil Invalidator
	var inv harvestuc.Invalidator
	if a.cache != nil {
		inv = a.cache
	}
	return harvestuc.New(a.fedora, a.docs, inv, harvestuc.Config{
		RootPID:   a.cfg.Harvest.RootPID,
		Roles:     mods.RoleMapping(a.cfg.Harvest.Roles),
		PollLimit: a.cfg.Harvest.PollLimit,
	})
}
