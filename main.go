package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/config"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/db"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/logger"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/notify"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/router"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.InitLogger()
	log.Info().Msg("Starting wallet service")

	database := db.InitDB(cfg.DBUrl)
	defer database.Close()

	db.RunMigrations(database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	notifier := notify.NewNotifier(rdb, log, cfg.NotifyWebhook)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	notifier.StartWorker(workerCtx)

	r := router.SetupRouter(database, cfg, log, notifier)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Info().Msg("Shutdown signal received")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
