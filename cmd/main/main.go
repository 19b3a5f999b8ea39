package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedback-portal/internal/app"
	"feedback-portal/internal/handlers/portal"
	"feedback-portal/internal/kafka"
	"feedback-portal/internal/middleware"
	"feedback-portal/internal/session"
	"feedback-portal/internal/views"
	"feedback-portal/internal/wrappers/backend"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	cfgPath         = "config/config.yaml"
	activityBuffer  = 256
	shutdownTimeout = 10 * time.Second
)

func main() {
	// init logger
	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	logger := zapLogger.Sugar()
	defer func() {
		if err := zapLogger.Sync(); err != nil {
			logger.Warnf("error to sync logger: %v", err)
		}
	}()

	// парсим конфиг
	c, err := app.NewConfig(cfgPath)
	if err != nil {
		logger.Fatalf("error to parsing config: %v", err)
	}
	if len(c.CSRFKey) != 32 {
		logger.Fatalf("csrf_key must be 32 bytes, got %d", len(c.CSRFKey))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Infof("Failed to get response to ping: %v", err)
	}

	// init backend client и хранилище сессий
	apiClient := backend.NewClient(c.Backend.BaseURL, c.Backend.Timeout, logger)
	sessionRepository := session.NewSessionRepository(redisClient, logger, c.SessionDuration)
	store := session.NewStore(sessionRepository, apiClient, logger, c.SessionDuration)
	store.OnChange(middleware.SessionEventsCounter)

	// события активности уходят в Kafka, только если заданы брокеры
	var publisher *kafka.ActivityPublisher
	if len(c.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(c.Kafka.Brokers, c.Kafka.Topic, logger)
		defer producer.Close()

		publisher = kafka.NewActivityPublisher(producer, activityBuffer, logger)
		store.OnChange(publisher.Listen)
		go publisher.Run(ctx)
	}

	renderer, err := views.NewRenderer(logger)
	if err != nil {
		logger.Fatalf("error to parsing templates: %v", err)
	}

	// init router
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", portal.Health).Methods(http.MethodGet)

	// страницы портала: cookie сессии, csrf, затем проверка доступа
	portalHandlers := portal.NewPortalHandler(logger, store, apiClient, renderer)
	pages := r.NewRoute().Subrouter()
	pages.Use(
		middleware.EnsureSessionCookie(middleware.CookieConfig{
			Name:   c.Cookie.Name,
			Secure: c.Cookie.Secure,
		}),
		csrf.Protect(
			[]byte(c.CSRFKey),
			csrf.Secure(c.Cookie.Secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
		),
		middleware.Gate(store, c.Cookie.Name, logger, portalHandlers.Deny),
	)
	portalHandlers.Routes(pages)

	logger.Infow("starting server",
		"type", "START",
		"addr", c.ServerPort,
		"backend", c.Backend.BaseURL,
	)

	// WriteTimeout не задан: /events держит соединение открытым
	srv := &http.Server{
		Addr:              c.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("can't start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}

	// producer.Close в defer выполнится только после того, как очередь дописана
	if publisher != nil {
		if err := publisher.Wait(shutdownCtx); err != nil {
			logger.Warnf("activity queue was not drained: %v", err)
		}
	}
	logger.Info("Server stopped")
}
