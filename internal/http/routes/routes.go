package routes

import (
	"html/template"

	"github.com/Dhoini/checkout-bridge/internal/app"
	"github.com/Dhoini/checkout-bridge/internal/http/templates"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/gin-gonic/gin"
)

// SetupRoutes настраивает все маршруты для Gin роутера
func SetupRoutes(router *gin.Engine, app *app.App, log *logger.Logger) {
	// Встроенные HTML-шаблоны checkout-поверхности
	router.SetHTMLTemplate(template.Must(template.ParseFS(templates.FS, "*.html")))

	// Checkout-поверхность и терминальные страницы
	router.GET("/checkout", app.CheckoutHandler.RenderCheckout)
	router.GET("/payment/success", app.CheckoutHandler.RenderSuccess)
	router.GET("/payment/failure", app.CheckoutHandler.RenderFailure)

	// Группа API
	api := router.Group("/api")
	{
		// Опрос статуса платежа клиентом
		api.GET("/check-payment/:sessionId", app.StatusHandler.CheckPayment)

		// Путь подтверждения: данные покупателя + материализация заказа
		api.POST("/save-customer-data", app.StatusHandler.SaveCustomerData)

		// Диагностика доступности провайдера
		api.GET("/sumup-ping", app.DiagnosticsHandler.Ping)
	}

	// Асинхронные уведомления провайдера
	router.POST("/webhook/sumup", app.WebhookHandler.HandleSumUpWebhook)

	// Диагностический passthrough к истории транзакций
	router.GET("/transactions", app.DiagnosticsHandler.ListTransactions)

	// Здоровье сервиса
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(app.MetricsHandler))

	log.Infow("HTTP routes successfully configured")
}
