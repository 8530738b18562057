package main

import (
	"context"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"

	"todo-api/storage"
)

type initConfig struct {
	Debug           bool   `env:"DEBUG"`
	ConnStr         string `env:"STORAGE_CONNECTION_STRING,notEmpty"`
	UsersTable      string `env:"USERS_TABLE" envDefault:"users"`
	UserEmailsTable string `env:"USER_EMAILS_TABLE" envDefault:"useremails"`
	TasksTable      string `env:"TASKS_TABLE" envDefault:"tasks"`
	ActivityTable   string `env:"ACTIVITY_TABLE" envDefault:"activity"`
	EventsQueue     string `env:"EVENTS_QUEUE"`
}

func main() {
	var cfg initConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	ctx := context.Background()

	if err := storage.EnsureTables(ctx, cfg.ConnStr, cfg.UsersTable, cfg.UserEmailsTable, cfg.TasksTable, cfg.ActivityTable); err != nil {
		log.Fatalf("create tables: %v", err)
	}
	if err := storage.EnsureQueue(ctx, cfg.ConnStr, cfg.EventsQueue); err != nil {
		log.Fatalf("create queue: %v", err)
	}

	log.Info("storage init complete")
}
