package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"

	"todo-api/storage"
)

type workerConfig struct {
	Debug         bool          `env:"DEBUG"`
	ConnStr       string        `env:"STORAGE_CONNECTION_STRING,notEmpty"`
	EventsQueue   string        `env:"EVENTS_QUEUE,notEmpty"`
	ActivityTable string        `env:"ACTIVITY_TABLE" envDefault:"activity"`
	BatchSize     int32         `env:"EVENTS_BATCH_SIZE" envDefault:"16"`
	Visibility    time.Duration `env:"EVENTS_VISIBILITY_TIMEOUT" envDefault:"30s"`
	PollInterval  time.Duration `env:"EVENTS_POLL_INTERVAL" envDefault:"1s"`
}

func main() {
	var cfg workerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > 32 {
		log.Fatal("EVENTS_BATCH_SIZE must be between 1 and 32")
	}
	log.Info("event worker starting")

	queue, err := storage.NewEventQueue(cfg.ConnStr, cfg.EventsQueue)
	if err != nil {
		log.Fatalf("events queue: %v", err)
	}
	activity, err := storage.NewActivityLog(cfg.ConnStr, cfg.ActivityTable)
	if err != nil {
		log.Fatalf("activity table: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &processor{
		queue:      queue,
		recorder:   activity,
		batchSize:  cfg.BatchSize,
		visibility: cfg.Visibility,
		idle:       cfg.PollInterval,
	}
	p.run(ctx)
	log.Info("event worker stopped")
}
