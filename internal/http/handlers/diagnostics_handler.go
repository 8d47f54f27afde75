package handlers

import (
	"net/http"

	"github.com/Dhoini/checkout-bridge/internal/integration/sumup"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/Dhoini/checkout-bridge/pkg/res"
	"github.com/gin-gonic/gin"
)

// DiagnosticsHandler диагностические passthrough-маршруты к провайдеру (для Gin).
// Не являются частью основного контракта.
type DiagnosticsHandler struct {
	provider *sumup.Client
	log      *logger.Logger
}

// NewDiagnosticsHandler создает новый экземпляр DiagnosticsHandler.
func NewDiagnosticsHandler(provider *sumup.Client, log *logger.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		provider: provider,
		log:      log,
	}
}

// ListTransactions обрабатывает GET /transactions
func (h *DiagnosticsHandler) ListTransactions(c *gin.Context) {
	raw, err := h.provider.ListTransactions(c.Request.Context())
	if err != nil {
		h.log.Errorw("Failed to list provider transactions", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to list transactions"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// Ping обрабатывает GET /api/sumup-ping
func (h *DiagnosticsHandler) Ping(c *gin.Context) {
	if err := h.provider.Ping(c.Request.Context()); err != nil {
		h.log.Errorw("SumUp ping failed", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "SumUp API unreachable"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, gin.H{"status": "ok"}, http.StatusOK)
}
