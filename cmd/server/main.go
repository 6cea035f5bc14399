package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal/config"
	"github.com/promptguessr/backend/internal/game"
	"github.com/promptguessr/backend/internal/imagegen"
	"github.com/promptguessr/backend/internal/server"
	"github.com/promptguessr/backend/internal/store"
	"github.com/promptguessr/backend/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	st, err := newStore(cfg, log)
	if err != nil {
		log.Fatalw("store init failed", "err", err)
	}

	gen, err := imagegen.FromConfig(cfg, log)
	if err != nil {
		log.Fatalw("image provider init failed", "err", err)
	}
	log.Infow("image provider ready", "provider", gen.Name())

	svc := game.NewService(st, gen, log)
	hub := websocket.NewHub(svc, cfg.CORSOrigins, log)
	hub.BindOrchestrator(game.NewOrchestrator(svc, hub, log))

	srv := server.New(svc, hub, st, cfg, log)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("listening", "port", cfg.Port, "env", cfg.AppEnv)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	hub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Errorw("shutdown incomplete", "err", err)
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.IsProduction() {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}

// newStore connects to Redis when configured, otherwise falls back to the
// in-memory store for local development.
func newStore(cfg *config.Config, log *zap.SugaredLogger) (store.RoomStore, error) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, using in-memory store; rooms will not survive restarts")
		return store.NewMemory(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	log.Infow("redis connected", "addr", opts.Addr)
	return store.NewRedis(client, log), nil
}
