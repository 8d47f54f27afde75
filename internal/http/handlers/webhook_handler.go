package handlers

import (
	"net/http"

	"github.com/Dhoini/checkout-bridge/internal/services"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/Dhoini/checkout-bridge/pkg/req"
	"github.com/Dhoini/checkout-bridge/pkg/res"
	"github.com/gin-gonic/gin"
)

// WebhookHandler обрабатывает асинхронные уведомления SumUp (для Gin).
type WebhookHandler struct {
	service *services.CheckoutService
	log     *logger.Logger
}

// NewWebhookHandler создает новый экземпляр WebhookHandler.
func NewWebhookHandler(service *services.CheckoutService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log,
	}
}

// sumupNotification тело уведомления SumUp
type sumupNotification struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Payload   struct {
		CheckoutID string `json:"checkout_id"`
		Reference  string `json:"reference"`
	} `json:"payload"`
}

// HandleSumUpWebhook обрабатывает POST /webhook/sumup.
// Уведомление продвигает ту же машину состояний, что и опрос клиента:
// статус перечитывается у провайдера, телу уведомления не доверяем.
// Ответ всегда 200, чтобы провайдер не копил повторные доставки.
func (h *WebhookHandler) HandleSumUpWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	notification, err := req.Decode[sumupNotification](c.Request.Body)
	if err != nil {
		h.log.Warnw("Failed to decode webhook payload", "error", err)
		res.JsonResponse(c.Writer, gin.H{"status": "received"}, http.StatusOK)
		return
	}

	checkoutID := notification.Payload.CheckoutID
	if checkoutID == "" {
		checkoutID = notification.ID
	}

	if checkoutID != "" {
		status, err := h.service.ApplyProviderStatus(ctx, checkoutID)
		if err != nil {
			h.log.Errorw("Failed to apply provider status from webhook", "checkoutID", checkoutID, "error", err)
		} else {
			h.log.Infow("Webhook processed", "checkoutID", checkoutID, "eventType", notification.EventType, "status", status)
		}
	}

	res.JsonResponse(c.Writer, gin.H{"status": "received"}, http.StatusOK)
}
