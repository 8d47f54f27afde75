package shopify

import (
	"net/http"
	"strings"
	"time"

	"github.com/Dhoini/checkout-bridge/pkg/logger"
)

// apiVersion версия Admin REST API Shopify
const apiVersion = "2024-01"

// Client представляет клиент для работы с Admin API Shopify
type Client struct {
	storeDomain string
	accessToken string
	httpClient  *http.Client
	log         *logger.Logger
}

// Config конфигурация для клиента Shopify
type Config struct {
	StoreDomain string
	AccessToken string
}

// NewClient создает новый клиент Shopify
func NewClient(cfg Config, log *logger.Logger) *Client {
	return &Client{
		storeDomain: strings.TrimSuffix(cfg.StoreDomain, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		log:         log,
	}
}

// ordersURL возвращает URL эндпоинта создания заказов
func (c *Client) ordersURL() string {
	domain := c.storeDomain
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain + "/admin/api/" + apiVersion + "/orders.json"
}
