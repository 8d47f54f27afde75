package sumup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Dhoini/checkout-bridge/internal/domain"
)

// Transaction представляет транзакцию в составе checkout-сессии SumUp
type Transaction struct {
	ID              string  `json:"id"`
	TransactionCode string  `json:"transaction_code"`
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Timestamp       string  `json:"timestamp,omitempty"`
}

// Checkout представляет checkout-сессию SumUp
type Checkout struct {
	ID                string        `json:"id"`
	CheckoutReference string        `json:"checkout_reference"`
	Amount            float64       `json:"amount"`
	Currency          string        `json:"currency"`
	Status            string        `json:"status"`
	Date              string        `json:"date,omitempty"`
	Description       string        `json:"description,omitempty"`
	MerchantCode      string        `json:"merchant_code,omitempty"`
	Transactions      []Transaction `json:"transactions,omitempty"`
}

// OpenCheckoutParams параметры создания checkout-сессии
type OpenCheckoutParams struct {
	Reference   string
	AmountMinor int64
	Currency    string
	Description string
}

// openCheckoutRequest тело запроса создания checkout-сессии
type openCheckoutRequest struct {
	CheckoutReference string  `json:"checkout_reference"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	MerchantCode      string  `json:"merchant_code"`
	Description       string  `json:"description,omitempty"`
}

// OpenCheckout создает checkout-сессию в SumUp.
// Один HTTPS POST без повторов; статус и тело ответа провайдера при ошибке
// передаются вызывающему дословно.
func (c *Client) OpenCheckout(ctx context.Context, params OpenCheckoutParams) (*Checkout, error) {
	c.log.Debugw("Opening SumUp checkout", "reference", params.Reference, "currency", params.Currency)

	payload := openCheckoutRequest{
		CheckoutReference: params.Reference,
		Amount:            majorUnits(params.AmountMinor),
		Currency:          params.Currency,
		MerchantCode:      c.merchantCode,
		Description:       params.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v0.1/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewExternalServiceError("sumup", resp.StatusCode, string(respBody), nil)
	}

	var checkout Checkout
	if err := json.Unmarshal(respBody, &checkout); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.log.Infow("Successfully opened SumUp checkout", "checkoutID", checkout.ID, "status", checkout.Status)
	return &checkout, nil
}

// GetCheckout получает checkout-сессию из SumUp по идентификатору
func (c *Client) GetCheckout(ctx context.Context, checkoutID string) (*Checkout, error) {
	c.log.Debugw("Getting SumUp checkout", "checkoutID", checkoutID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v0.1/checkouts/"+checkoutID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewExternalServiceError("sumup", resp.StatusCode, string(respBody), nil)
	}

	var checkout Checkout
	if err := json.Unmarshal(respBody, &checkout); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.log.Debugw("Successfully retrieved SumUp checkout",
		"checkoutID", checkout.ID, "status", checkout.Status, "transactions", len(checkout.Transactions))
	return &checkout, nil
}

// ListTransactions возвращает историю транзакций мерчанта (диагностический маршрут)
func (c *Client) ListTransactions(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v0.1/me/transactions/history", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewExternalServiceError("sumup", resp.StatusCode, string(respBody), nil)
	}

	return respBody, nil
}

// Ping проверяет доступность API SumUp и валидность ключа (диагностический маршрут)
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v0.1/me", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return domain.NewExternalServiceError("sumup", resp.StatusCode, string(respBody), nil)
	}
	return nil
}

// majorUnits конвертирует минорные единицы в основные для API SumUp
func majorUnits(minor int64) float64 {
	return float64(minor) / 100
}
