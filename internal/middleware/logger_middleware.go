package middleware

import (
	"time"

	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger - Gin middleware для логирования запросов.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Время начала обработки запроса
		start := time.Now()

		// Путь запроса
		path := c.Request.URL.Path
		// Сырой query string, если есть
		rawQuery := c.Request.URL.RawQuery
		if rawQuery != "" {
			path = path + "?" + rawQuery
		}

		// Обрабатываем запрос следующим middleware/обработчиком
		c.Next()

		// Детали ответа
		latency := time.Since(start)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method

		entry := []interface{}{
			"status", statusCode,
			"method", method,
			"path", path,
			"ip", clientIP,
			"latency", latency,
		}

		switch {
		case statusCode >= 500:
			log.Errorw("Request completed", entry...)
		case statusCode >= 400:
			log.Warnw("Request completed", entry...)
		default:
			log.Infow("Request completed", entry...)
		}
	}
}
