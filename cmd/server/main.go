package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/cafe_pos/internal/config"
	pkgdb "github.com/Skotchmaster/cafe_pos/internal/db"
	"github.com/Skotchmaster/cafe_pos/internal/es"
	"github.com/Skotchmaster/cafe_pos/internal/httpserver"
	"github.com/Skotchmaster/cafe_pos/internal/logging"
	"github.com/Skotchmaster/cafe_pos/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/cafe_pos/internal/middleware/logging"
	"github.com/Skotchmaster/cafe_pos/internal/mykafka"
	"github.com/Skotchmaster/cafe_pos/internal/notify"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/search"
	"github.com/Skotchmaster/cafe_pos/internal/service"
)

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := pkgdb.Migrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	gormRepo := &repo.GormRepo{DB: db}
	authSvc := &service.AuthService{Repo: gormRepo, JWTSecret: cfg.JWTSecret, TTL: cfg.AccessTokenTTL}

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := authSvc.EnsureAdmin(logging.IntoContext(ctx, logger), cfg.AdminUsername, cfg.AdminPassword)
		cancel()
		if err != nil {
			log.Fatalf("ensure admin: %v", err)
		}
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	hub := notify.NewHub(cfg.NotifyRetention, cfg.NotifyMaxAge)
	sinks := notify.Fanout{hub}

	var broker *notify.RedisBroker
	if cfg.RedisURL != "" {
		broker, err = notify.NewRedisBroker(context.Background(), cfg.RedisURL, cfg.RedisChannel, cfg.NotifyRetention)
		if err != nil {
			logger.Warn("redis_unavailable", "error", err)
		} else {
			sinks = append(sinks, broker)
			go func() {
				if err := broker.Relay(relayCtx, hub, logger); err != nil {
					logger.Error("notify_relay_stopped", "error", err)
				}
			}()
		}
	}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewAsyncProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		sinks = append(sinks, &notify.KafkaSink{Producer: producer, Topic: cfg.KafkaTopic})
	}

	menuSvc := &service.MenuService{Repo: gormRepo}
	if cfg.ESURL != "" {
		client, err := es.NewClient(cfg, logger)
		if err != nil {
			logger.Warn("es_unavailable", "error", err)
		} else {
			menuSvc.Index = &search.MenuIndex{ES: client, Index: cfg.ESIndex}
		}
	}

	checker := &service.AvailabilityChecker{Repo: gormRepo}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins, AllowCredentials: true}))
	} else {
		e.Use(echomw.CORS())
	}
	e.Use(echomw.Secure())
	e.Use(csrf.Middleware(csrf.Config{Secure: cfg.SecureCookies, SkipPaths: []string{"/auth/login"}}))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: authSvc},
		ProcessHandler: &httpserver.ProcessHTTP{
			Processor: &service.OrderProcessor{
				Repo:     gormRepo,
				Checker:  checker,
				Notifier: sinks,
				Location: cfg.Location,
			},
			Checker: checker,
		},
		OrderHandler:   &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: gormRepo, Notifier: sinks}},
		MenuHandler:    &httpserver.MenuHTTP{Svc: menuSvc},
		StockHandler:   &httpserver.StockHTTP{Svc: &service.StockService{Repo: gormRepo, Notifier: sinks}},
		ExpenseHandler: &httpserver.ExpenseHTTP{Svc: &service.ExpenseService{Repo: gormRepo}},
		NotifyHandler:  &httpserver.NotifyHTTP{Hub: hub, Broker: broker, Origins: cfg.CORSOrigins},
		JWTSecret:      cfg.JWTSecret,
		Ready:          gormRepo.Ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Closing the hub ends open websocket streams, which Shutdown does not track.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown_error", "error", err)
	}

	stopRelay()
	if broker != nil {
		_ = broker.Close()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka_close_error", "error", err)
		}
	}
	_ = pkgdb.Close(db)

	logger.Info("server_stopped")
}
