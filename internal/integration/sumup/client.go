package sumup

import (
	"net/http"
	"time"

	"github.com/Dhoini/checkout-bridge/pkg/logger"
)

// Client представляет клиент для работы с API SumUp
type Client struct {
	baseURL      string
	apiKey       string
	merchantCode string
	httpClient   *http.Client
	log          *logger.Logger
}

// Config конфигурация для клиента SumUp
type Config struct {
	APIKey       string
	MerchantCode string
	BaseURL      string
}

// NewClient создает новый клиент SumUp
func NewClient(cfg Config, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.sumup.com"
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		merchantCode: cfg.MerchantCode,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          log,
	}
}

// MerchantCode возвращает код мерчанта (получателя платежа)
func (c *Client) MerchantCode() string {
	return c.merchantCode
}
