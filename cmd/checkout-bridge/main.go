package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/checkout-bridge/internal/app"
	"github.com/Dhoini/checkout-bridge/internal/config"
	"github.com/Dhoini/checkout-bridge/internal/events"
	"github.com/Dhoini/checkout-bridge/internal/http/routes"
	"github.com/Dhoini/checkout-bridge/internal/integration/shopify"
	"github.com/Dhoini/checkout-bridge/internal/integration/sumup"
	"github.com/Dhoini/checkout-bridge/internal/metrics"
	"github.com/Dhoini/checkout-bridge/internal/services"
	"github.com/Dhoini/checkout-bridge/internal/store"
	"github.com/Dhoini/checkout-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем логгер
	log := initLogger()

	log.Infow("Checkout bridge starting up...")

	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}

	// Устанавливаем режим Gin в зависимости от окружения
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Выбираем бэкенд хранилища сессий
	sessionStore, err := buildSessionStore(ctx, cfg, log)
	if err != nil {
		log.Fatalw("Failed to initialize session store", "backend", cfg.Store.Backend, "error", err)
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			log.Errorw("Error closing session store", "error", err)
		}
	}()
	log.Infow("Session store initialized", "backend", cfg.Store.Backend)

	// Инициализируем клиент SumUp
	sumupClient := sumup.NewClient(sumup.Config{
		APIKey:       cfg.SumUp.APIKey,
		MerchantCode: cfg.SumUp.MerchantCode,
		BaseURL:      cfg.SumUp.BaseURL,
	}, log)

	// Инициализируем клиент Shopify
	shopifyClient := shopify.NewClient(shopify.Config{
		StoreDomain: cfg.Shopify.StoreDomain,
		AccessToken: cfg.Shopify.AccessToken,
	}, log)

	// Инициализируем Kafka producer (не фатально: события жизненного цикла
	// не критичны для основного платежного флоу)
	var producer events.Producer
	producer, err = events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		log.Warnw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		producer = &events.NoOpProducer{}
	} else {
		log.Infow("Kafka producer initialized", "topic", cfg.Kafka.Topic)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Errorw("Error closing Kafka producer", "error", err)
		}
	}()

	// Инициализируем метрики Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry, log)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	// Инициализируем поллер статусов и оркестратор
	poller := services.NewPoller(sumupClient, cfg.Polling.Interval, cfg.Polling.Timeout, log)
	checkoutService := services.NewCheckoutService(
		sessionStore,
		sumupClient,
		shopifyClient,
		producer,
		checkoutMetrics,
		poller,
		log,
	)

	// Собираем application и HTTP сервер
	application := app.NewApp(cfg, checkoutService, sumupClient, metricsHandler, log)

	router := gin.New()
	router.Use(application.LoggerMiddleware)
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, application, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute, // путь подтверждения может ждать поллер до полного окна
	}

	go func() {
		log.Infow("Starting HTTP server", "port", cfg.App.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	log.Infow("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Infow("HTTP server gracefully stopped")
	}

	log.Infow("Cleanup finished. Goodbye!")
}

// buildSessionStore создает хранилище сессий согласно конфигурации
func buildSessionStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.SessionStore, error) {
	switch cfg.Store.Backend {
	case "redis":
		return store.NewRedisStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, log)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Store.Postgres.DSN, log)
	default:
		return store.NewMemoryStore(log), nil
	}
}

// initLogger инициализирует новый логгер
func initLogger() *logger.Logger {
	logLevel := logger.INFO
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = logger.DEBUG
	}
	return logger.New(logLevel)
}
