package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"socialmedia/internal/api"
	"socialmedia/internal/config"
	"socialmedia/internal/logging"
	"socialmedia/internal/metrics"
	"socialmedia/internal/redis"
	"socialmedia/internal/service/account"
	"socialmedia/internal/service/message"
	"socialmedia/internal/storage"
	"socialmedia/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SOCIALMEDIA_CONFIG"))
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	dbType := os.Getenv("SOCIALMEDIA_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.WithField("driver", dbType).Info("opening database")
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create tables: accounts, messages
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	accountRepo := storage.NewAccountRepository(db)
	messageOpts := []message.Option{message.WithLogger(log)}
	var events *worker.Dispatcher
	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		publisher := redis.NewEventPublisher(rdb, cfg.Redis.Channel)
		log.WithField("channel", publisher.Channel()).Info("publishing message events")
		events = worker.NewDispatcher(publisher, worker.Config{
			Workers:   cfg.BasicConfig.EventWorkers,
			QueueSize: cfg.BasicConfig.EventQueueSize,
		}, log)
		messageOpts = append(messageOpts, message.WithNotifier(events))
	}

	accountService := account.NewService(accountRepo)
	messageService := message.NewService(storage.NewMessageRepository(db), accountRepo, messageOpts...)
	handlers := api.NewHandler(accountService, messageService, db, log)

	if cfg.BasicConfig.GinMode != "" {
		gin.SetMode(cfg.BasicConfig.GinMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.Middleware(log),
		metrics.Middleware(),
		cors.New(corsConfig(cfg.CORS)),
	)
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if events != nil {
		if err := events.Close(ctx); err != nil {
			log.WithError(err).Warn("pending message events dropped")
		}
	}
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	if len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*") {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = c.AllowedOrigins
	return cc
}
