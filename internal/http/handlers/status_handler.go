package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/internal/services"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/Dhoini/checkout-bridge/pkg/req"
	"github.com/Dhoini/checkout-bridge/pkg/res"
	"github.com/gin-gonic/gin"
)

// StatusHandler обрабатывает опрос статуса и путь подтверждения (для Gin).
type StatusHandler struct {
	service *services.CheckoutService
	log     *logger.Logger
}

// NewStatusHandler создает новый экземпляр StatusHandler.
func NewStatusHandler(service *services.CheckoutService, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		service: service,
		log:     log,
	}
}

// --- DTO ---

// SaveCustomerDataRequest тело запроса подтверждения платежа
type SaveCustomerDataRequest struct {
	SessionID    string                `json:"sessionId" validate:"required"`
	CustomerData domain.CustomerRecord `json:"customerData"`
	CartData     *domain.CartSnapshot  `json:"cartData,omitempty"`
}

// CheckPaymentResponse ответ опроса статуса
type CheckPaymentResponse struct {
	Status   string `json:"status"`
	Checkout any    `json:"checkout,omitempty"`
}

// SaveCustomerDataResponse ответ пути подтверждения
type SaveCustomerDataResponse struct {
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	OrderID     int64  `json:"order_id,omitempty"`
	OrderNumber int    `json:"order_number,omitempty"`
}

// CheckPayment обрабатывает GET /api/check-payment/:sessionId
func (h *StatusHandler) CheckPayment(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("sessionId")

	status, checkout, err := h.service.CheckStatus(ctx, sessionID)
	if err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: verrs.Error()}, http.StatusBadRequest)
			c.Abort()
			return
		}

		h.log.Errorw("Failed to check payment status", "sessionID", sessionID, "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to check payment status"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, CheckPaymentResponse{Status: status, Checkout: checkout}, http.StatusOK)
}

// SaveCustomerData обрабатывает POST /api/save-customer-data
func (h *StatusHandler) SaveCustomerData(c *gin.Context) {
	ctx := c.Request.Context()

	requestBody, err := req.HandleBody[SaveCustomerDataRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	result, err := h.service.ConfirmPayment(ctx, services.ConfirmInput{
		SessionID: requestBody.SessionID,
		Customer:  requestBody.CustomerData,
		Cart:      requestBody.CartData,
	})
	if err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			// Отказ валидации: провайдер не вызывался, пользователь может исправить форму
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid customer data", Details: verrs.Fields()}, http.StatusUnprocessableEntity)
			c.Abort()
			return
		}

		h.log.Errorw("Confirmation path failed", "sessionID", requestBody.SessionID, "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to confirm payment"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	response := SaveCustomerDataResponse{Status: string(result.Outcome)}
	switch result.Outcome {
	case services.OutcomeSuccess:
		if result.Order != nil {
			response.OrderID = result.Order.ID
			response.OrderNumber = result.Order.OrderNumber
		}
	case services.OutcomePartialSuccess:
		// Списание состоялось; создание заказа сверяется оператором отдельно
		response.Error = "order creation pending manual reconciliation"
	case services.OutcomeFailed:
		// Платеж не прошел, списания нет, повторная попытка уместна
		response.Status = "error"
		response.Error = "payment failed"
	}

	res.JsonResponse(c.Writer, response, http.StatusOK)
}
