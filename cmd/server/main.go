package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reclaim/internal/engine"
	engineMetrics "reclaim/internal/engine/metrics"
	"reclaim/internal/item"
	"reclaim/internal/match"
	matchMetrics "reclaim/internal/match/metrics"
	"reclaim/internal/notification"
	notificationMetrics "reclaim/internal/notification/metrics"
	"reclaim/internal/platform/config"
	"reclaim/internal/platform/httpserver"
	"reclaim/internal/platform/logger"
	"reclaim/internal/platform/postgres"
	"reclaim/internal/platform/redis"
	"reclaim/internal/platform/token"
	"reclaim/internal/spatial"
	spatialMetrics "reclaim/internal/spatial/metrics"
	"reclaim/internal/subscription"
	httptransport "reclaim/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Every backing
// service is optional: without Postgres, Redis, or Kafka the engine runs on
// in-memory stores, the grid index, and the log delivery sink.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		items    item.Store
		history  match.History
		subs     subscription.Store
		tracker  subscription.Tracker
		notStore notification.Store
	)
	if db != nil {
		schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		itemStore := item.NewPostgresStore(db)
		historyStore := match.NewPostgresHistory(db)
		subStore := subscription.NewPostgresStore(db)
		notificationStore := notification.NewPostgresStore(db)
		for _, ensure := range []func(context.Context) error{
			itemStore.EnsureSchema,
			historyStore.EnsureSchema,
			subStore.EnsureSchema,
			notificationStore.EnsureSchema,
		} {
			if err := ensure(schemaCtx); err != nil {
				log.Error("failed to ensure schema", "error", err)
				os.Exit(1)
			}
		}
		items, history, subs, tracker, notStore = itemStore, historyStore, subStore, subStore, notificationStore
		log.Info("using postgres stores")
	} else {
		items = item.NewInMemoryStore()
		history = match.NewInMemoryHistory()
		subs = subscription.NewInMemoryStore()
		tracker = subscription.NewInMemoryTracker()
		notStore = notification.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	spatialMet := spatialMetrics.New()
	var index spatial.Index
	backend := "memory"
	if redisClient != nil {
		index = spatial.NewRedisIndex(redisClient.Client, spatialMet)
		backend = "redis"
	} else {
		index = spatial.NewGridIndex(spatialMet)
	}
	log.Info("spatial index ready", "backend", backend)

	querier := spatial.NewQuerier(index, items, cfg.QueryTimeout, backend, spatialMet)
	matcher := match.NewMatcher(items, history, cfg.QueryTimeout, matchMetrics.New(),
		match.WithFuzzy(cfg.FuzzyMatch))
	evaluator := subscription.NewEvaluator(subs, tracker)

	var sink notification.DeliverySink
	if len(cfg.KafkaSeeds) > 0 {
		kafkaSink, err := notification.NewKafkaSink(cfg.KafkaSeeds, notification.DefaultTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("using kafka delivery sink", "seeds", cfg.KafkaSeeds)
	} else {
		sink = notification.NewLogSink(log)
	}

	dispatcher := notification.NewDispatcher(notStore, sink, notificationMetrics.New(), log)
	eng := engine.New(items, index, querier, matcher, subs, evaluator, dispatcher,
		engineMetrics.New(), log)

	sweeper := engine.NewSweeper(eng, dispatcher, cfg.SweepInterval, cfg.DeliveryWindow, log)
	go sweeper.Run(ctx)

	validator := token.NewJWTService(cfg.JWTSigningKey, "reclaim")
	handler := httptransport.New(eng, log)
	router := httptransport.NewRouter(handler, validator, log)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
