package handlers

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/internal/services"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/Dhoini/checkout-bridge/pkg/res"
	"github.com/gin-gonic/gin"
)

// CheckoutHandler обрабатывает HTTP запросы checkout-поверхности (для Gin).
type CheckoutHandler struct {
	service *services.CheckoutService
	log     *logger.Logger
}

// NewCheckoutHandler создает новый экземпляр CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		log:     log,
	}
}

// RenderCheckout обрабатывает GET /checkout
func (h *CheckoutHandler) RenderCheckout(c *gin.Context) {
	ctx := c.Request.Context()

	amountRaw := c.Query("amount")
	currency := c.Query("currency")
	if amountRaw == "" || currency == "" {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "amount and currency are required"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	amountMinor, err := domain.ParseAmountMinor(amountRaw)
	if err != nil {
		h.log.Warnw("Invalid amount in checkout request", "amount", amountRaw, "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid amount", Details: err.Error()}, http.StatusBadRequest)
		c.Abort()
		return
	}

	currency, err = domain.NormalizeCurrency(currency)
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid currency", Details: err.Error()}, http.StatusBadRequest)
		c.Abort()
		return
	}

	cart, err := parseCartItems(c.Query("cart_items"), currency)
	if err != nil {
		h.log.Warnw("Invalid cart data in checkout request", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid cart data", Details: err.Error()}, http.StatusBadRequest)
		c.Abort()
		return
	}

	output, err := h.service.CreateCheckout(ctx, services.CreateCheckoutInput{
		AmountMinor:    amountMinor,
		Currency:       currency,
		OrderReference: c.Query("order_id"),
		ReturnURL:      c.Query("return_url"),
		Cart:           cart,
	})
	if err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid checkout parameters", Details: verrs.Fields()}, http.StatusBadRequest)
			c.Abort()
			return
		}

		// Ошибка провайдера: сессия не создана, показываем общую страницу отказа
		h.log.Errorw("Failed to create checkout session", "error", err)
		c.HTML(http.StatusInternalServerError, "result.html", gin.H{
			"Title":   "Payment unavailable",
			"Message": "We could not start the payment. Please try again later.",
		})
		return
	}

	cartJSON := template.JS("null")
	if output.Cart != nil {
		if data, err := json.Marshal(output.Cart); err == nil {
			cartJSON = template.JS(data)
		}
	}

	c.HTML(http.StatusOK, "checkout.html", gin.H{
		"SessionID":   output.SessionID,
		"AmountMajor": domain.MinorToMajor(amountMinor),
		"Currency":    currency,
		"CartJSON":    cartJSON,
		"ReturnURL":   output.ReturnURL,
	})
}

// RenderSuccess обрабатывает GET /payment/success
func (h *CheckoutHandler) RenderSuccess(c *gin.Context) {
	c.HTML(http.StatusOK, "result.html", gin.H{
		"Title":      "Payment successful",
		"Message":    "Thank you! Your payment was received.",
		"CheckoutID": c.Query("checkout_id"),
	})
}

// RenderFailure обрабатывает GET /payment/failure
func (h *CheckoutHandler) RenderFailure(c *gin.Context) {
	c.HTML(http.StatusOK, "result.html", gin.H{
		"Title":   "Payment failed",
		"Message": "Your card was not charged. Please try again.",
	})
}

// parseCartItems разбирает JSON-параметр cart_items в снимок корзины
func parseCartItems(raw, currency string) (*domain.CartSnapshot, error) {
	if raw == "" {
		return nil, nil
	}

	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	var total int64
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, domain.ValidationErrors{{Field: "quantity", Message: "must be greater than zero"}}
		}
		if item.UnitPriceMinor <= 0 {
			return nil, domain.ValidationErrors{{Field: "price", Message: "must be greater than zero"}}
		}
		total += int64(item.Quantity) * item.UnitPriceMinor
	}

	return &domain.CartSnapshot{
		Items:           items,
		TotalPriceMinor: total,
		Currency:        currency,
	}, nil
}
