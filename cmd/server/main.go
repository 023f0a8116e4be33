package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/baharbilginay/execution-engine/internal/api"
	"github.com/baharbilginay/execution-engine/internal/calendar"
	"github.com/baharbilginay/execution-engine/internal/config"
	"github.com/baharbilginay/execution-engine/internal/engine"
	"github.com/baharbilginay/execution-engine/internal/oracle"
	"github.com/baharbilginay/execution-engine/internal/orderqueue"
	"github.com/baharbilginay/execution-engine/internal/scheduler"
	"github.com/baharbilginay/execution-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Market calendar ---
	cal, err := calendar.New(cfg.MarketTimezone, cfg.MarketOpen, cfg.MarketClose)
	if err != nil {
		slog.Error("invalid market calendar", "err", err)
		os.Exit(1)
	}

	// --- Price oracle ---
	orc := oracle.NewMemoryOracle()

	// --- WebSocket hub ---
	hub := api.NewHub()
	go hub.Run()

	// --- Engine + order queue ---
	queue := orderqueue.New(st)
	eng := engine.New(st, orc, cal, queue, hub)

	// --- Pending-order sweep ---
	sched := scheduler.New()
	err = sched.AddJob(cfg.SweepSchedule, "pending-order-sweep", func() error {
		_, err := eng.RunSweep(context.Background())
		return err
	})
	if err != nil {
		slog.Error("invalid sweep schedule", "err", err)
		os.Exit(1)
	}
	sched.Start()

	// --- HTTP server ---
	server := api.NewServer(eng, queue, orc, st, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("execution-engine listening", "port", cfg.Port,
			"market_open", cfg.MarketOpen, "market_close", cfg.MarketClose,
			"timezone", cfg.MarketTimezone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down execution-engine...")
	sched.Stop()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("execution-engine stopped")
}
