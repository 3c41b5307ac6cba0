package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefeed/api/config"
	"storefeed/api/database"
	"storefeed/api/feed"
	"storefeed/api/handlers"
	"storefeed/api/logging"
	"storefeed/api/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Catalog (PostgreSQL, read-only) ---
	dbClient, err := database.NewPostgresDB(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing PostgreSQL catalog")
	}
	defer dbClient.Close()

	catalogStore := store.NewCatalogStore(dbClient.DB)
	catalog := store.NewBreakerCatalog(catalogStore, store.BreakerSettings{
		FailureThreshold: cfg.Feed.BreakerThreshold,
		OpenTimeout:      cfg.Feed.BreakerTimeout,
	})

	// --- Visitor key-value store ---
	kv, closeKV, err := openKV(cfg.KV)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.KV.Backend).Msg("initializing key-value store")
	}
	defer closeKV()

	// --- Product view analytics (ClickHouse, optional) ---
	var sink handlers.ViewSink
	if cfg.ClickHouse.Enabled() {
		chClient, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			log.Fatal().Err(err).Msg("initializing ClickHouse")
		}
		defer chClient.Close()
		sink = store.NewAnalyticsStore(chClient)
	} else {
		log.Info().Msg("CLICKHOUSE_HOST not set, product view analytics disabled")
	}

	opts := feed.Options{
		FetchTimeout: cfg.Feed.FetchTimeout,
		StickyAnchor: cfg.Feed.StickyAnchor,
		PinTTL:       cfg.Feed.PinTTL,
	}
	visitors := handlers.NewVisitors(func(visitorID string) *feed.Engine {
		return feed.NewEngine(catalog, catalogStore, store.NewNamespaced(kv, "visitor:"+visitorID+":"), feed.NewStateCache(), opts)
	}, cfg.Feed.MaxVisitors, cfg.Feed.VisitorTTL)

	r := handlers.NewRouter(visitors, sink, []byte(cfg.JWTSecret), cfg.FrontendOrigin)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("storefeed API starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}

func openKV(cfg config.KVConfig) (feed.KV, func(), error) {
	switch cfg.Backend {
	case "redis":
		rdb, err := database.NewRedis(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisKV(rdb), func() { _ = rdb.Close() }, nil
	case "sqlite":
		db, err := database.OpenSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store.NewSQLiteKV(db), func() { _ = db.Close() }, nil
	default:
		log.Warn().Msg("using in-memory key-value store; visitor preferences will not survive a restart")
		return store.NewMemoryKV(), func() {}, nil
	}
}
