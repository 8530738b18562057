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
	log "github.com/sirupsen/logrus"

	"todo-api/api"
	"todo-api/auth"
	"todo-api/config"
	"todo-api/domain"
	"todo-api/storage"
	"todo-api/telemetry"
)

const serviceName = "todo-api"

// store is what the services need from a persistence backend.
type store interface {
	domain.UserStorage
	domain.TaskStorage
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.StandardLogger()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.Production() {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.WithError(err).Warn("flush traces")
		}
	}()

	st, health, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeStore()

	var taskStore domain.TaskStorage = st
	if cfg.RedisConnStr != "" {
		rc := redis.NewClient(storage.ParseRedisOptions(cfg.RedisConnStr))
		defer rc.Close()
		taskStore = storage.NewCache(st, rc, cfg.TasksCacheTTL)
		log.WithField("ttl", cfg.TasksCacheTTL).Info("tasks cache enabled")
	}

	var events domain.EventPublisher = domain.NopPublisher{}
	if cfg.EventsQueue != "" {
		q, err := storage.NewEventQueue(cfg.StorageConnStr, cfg.EventsQueue)
		if err != nil {
			log.Fatalf("events queue: %v", err)
		}
		events = q
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	accounts := domain.NewAccountService(st, auth.NewBcryptHasher(cfg.BcryptCost), tokens, events)
	tasks := domain.NewTaskService(taskStore, events)

	e := api.NewServer(logger, cfg.Production())
	api.Register(e, api.Routes{
		Accounts:      accounts,
		Tasks:         tasks,
		Authenticator: api.NewAuthenticator(tokens, accounts),
		Health:        health,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		Logger:        logger,
	})

	go func() {
		log.WithFields(log.Fields{"addr": cfg.Addr(), "backend": cfg.StorageBackend}).Info("listening")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

func openStore(cfg config.Config) (store, api.HealthCheck, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendAzTables:
		st, err := storage.New(cfg.StorageConnStr, storage.Tables{
			Users:      cfg.UsersTable,
			UserEmails: cfg.UserEmailsTable,
			Tasks:      cfg.TasksTable,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return st, st.Ping, func() {}, nil
	default:
		db, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("close sqlite")
			}
		}
		return db, db.Ping, closeDB, nil
	}
}
