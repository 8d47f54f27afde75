package app

import (
	"net/http"

	"github.com/Dhoini/checkout-bridge/internal/config"
	"github.com/Dhoini/checkout-bridge/internal/http/handlers"
	"github.com/Dhoini/checkout-bridge/internal/integration/sumup"
	"github.com/Dhoini/checkout-bridge/internal/middleware"
	"github.com/Dhoini/checkout-bridge/internal/services"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/gin-gonic/gin"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config             *config.Config
	CheckoutService    *services.CheckoutService
	CheckoutHandler    *handlers.CheckoutHandler
	StatusHandler      *handlers.StatusHandler
	WebhookHandler     *handlers.WebhookHandler
	DiagnosticsHandler *handlers.DiagnosticsHandler
	MetricsHandler     http.Handler
	LoggerMiddleware   gin.HandlerFunc
	Logger             *logger.Logger
}

// NewApp создает и инициализирует новый экземпляр приложения
func NewApp(
	cfg *config.Config,
	checkoutService *services.CheckoutService,
	provider *sumup.Client,
	metricsHandler http.Handler,
	log *logger.Logger,
) *App {
	// Инициализируем обработчики HTTP
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, log)
	statusHandler := handlers.NewStatusHandler(checkoutService, log)
	webhookHandler := handlers.NewWebhookHandler(checkoutService, log)
	diagnosticsHandler := handlers.NewDiagnosticsHandler(provider, log)

	// Инициализируем middleware логирования
	loggerMiddleware := middleware.RequestLogger(log)

	return &App{
		Config:             cfg,
		CheckoutService:    checkoutService,
		CheckoutHandler:    checkoutHandler,
		StatusHandler:      statusHandler,
		WebhookHandler:     webhookHandler,
		DiagnosticsHandler: diagnosticsHandler,
		MetricsHandler:     metricsHandler,
		LoggerMiddleware:   loggerMiddleware,
		Logger:             log,
	}
}
