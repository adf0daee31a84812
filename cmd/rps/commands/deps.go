package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/internal/external/eastmoney"
	"github.com/chilam/strongpool/internal/external/tushare"
	"github.com/chilam/strongpool/internal/pipeline"
	"github.com/chilam/strongpool/internal/store"
	"github.com/chilam/strongpool/internal/strategy"
	"github.com/chilam/strongpool/pkg/config"
	"github.com/chilam/strongpool/pkg/database"
	"github.com/chilam/strongpool/pkg/logger"
	"github.com/chilam/strongpool/pkg/redis"
)

// app holds the wired dependency graph for one CLI invocation.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB // nil unless the postgres store is selected
	redis      *redis.Client
	cache      *redis.Cache
	tushare    *tushare.Client
	strategies map[string]strategy.Strategy
}

// newApp loads config and constructs the shared collaborators.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)

	strategies, err := strategy.LoadOrDefaults(strategyFile)
	if err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		redis:      redisClient,
		cache:      redis.NewCache(redisClient, "strongpool"),
		tushare:    tushare.NewClient(cfg.Tushare, log),
		strategies: strategies,
	}

	if cfg.Store.Driver == "postgres" {
		db, err := database.New(cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.db = db
	}

	return a, nil
}

// Close releases shared connections.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// storeFor builds the signal store for one strategy per the configured
// driver.
func (a *app) storeFor(ctx context.Context, strat strategy.Strategy) (contracts.SignalStore, error) {
	switch a.cfg.Store.Driver {
	case "postgres":
		pg, err := store.NewPostgresStore(a.db.Pool, strat.Store.Table, a.log)
		if err != nil {
			return nil, err
		}
		if err := pg.Init(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		path := filepath.Join(a.cfg.Store.DataDir, strat.Store.File)
		return store.NewCSVStore(path, a.log), nil
	}
}

// stores builds one store per strategy, keyed by strategy name.
func (a *app) stores(ctx context.Context) (map[string]contracts.SignalStore, error) {
	out := make(map[string]contracts.SignalStore, len(a.strategies))
	for name, strat := range a.strategies {
		s, err := a.storeFor(ctx, strat)
		if err != nil {
			return nil, fmt.Errorf("store for %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// calendarProvider builds the shared trading-calendar provider.
func (a *app) calendarProvider() contracts.CalendarProvider {
	return tushare.NewCalendar(a.tushare, a.cache)
}

// pipelineFor wires the full batch pipeline for one strategy.
func (a *app) pipelineFor(ctx context.Context, strat strategy.Strategy) (*pipeline.Pipeline, error) {
	sigStore, err := a.storeFor(ctx, strat)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Calendar: a.calendarProvider(),
		Store:    sigStore,
		Workers:  a.cfg.EnrichWorkers,
	}

	switch strat.Universe {
	case "fund":
		fund := tushare.NewFundData(a.tushare)
		deps.Prices = fund
		deps.Listings = fund
		// Funds have no bulk fundamentals and no per-instrument
		// category source; those enrichment fields stay absent.
	default:
		equity := tushare.NewEquityData(a.tushare)
		deps.Prices = equity
		deps.Listings = equity
		deps.Fundamentals = equity
		deps.Categories = eastmoney.NewCategoryClient(a.log, a.cache)
	}

	return pipeline.New(strat, deps, a.log), nil
}
