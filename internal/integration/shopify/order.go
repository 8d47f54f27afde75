package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Dhoini/checkout-bridge/internal/domain"
)

// Order представляет созданный в Shopify заказ
type Order struct {
	ID          int64  `json:"id"`
	OrderNumber int    `json:"order_number"`
	Name        string `json:"name"`
}

// orderResponse обертка ответа Shopify
type orderResponse struct {
	Order Order `json:"order"`
}

// lineItem одна позиция заказа; Price — цена за единицу в основных единицах валюты
type lineItem struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	SKU       string `json:"sku,omitempty"`
	VariantID int64  `json:"variant_id,omitempty"`
}

// address почтовый адрес покупателя; биллинговый и доставочный адреса совпадают
type address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

// customerBody идентичность покупателя
type customerBody struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// transaction платежная запись заказа; ровно одна успешная продажа на заказ
type transaction struct {
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Gateway       string `json:"gateway"`
	Authorization string `json:"authorization"`
}

// orderBody тело создаваемого заказа
type orderBody struct {
	Email           string        `json:"email"`
	Currency        string        `json:"currency"`
	FinancialStatus string        `json:"financial_status"`
	SourceName      string        `json:"source_name"`
	LineItems       []lineItem    `json:"line_items"`
	Customer        customerBody  `json:"customer"`
	BillingAddress  address       `json:"billing_address"`
	ShippingAddress address       `json:"shipping_address"`
	Transactions    []transaction `json:"transactions"`
}

// orderPayload корневая обертка запроса
type orderPayload struct {
	Order orderBody `json:"order"`
}

// CreateOrder создает заказ в Shopify по подтвержденному платежу.
// Предусловие: корзина содержит хотя бы одну позицию, иначе ValidationErrors
// без единого исходящего вызова. Один HTTPS POST без повторов; на не-2xx ответ
// возвращается ExternalServiceError со статусом и телом ответа.
func (c *Client) CreateOrder(ctx context.Context, req domain.OrderMaterializationRequest) (*Order, error) {
	if req.Cart.IsEmpty() {
		return nil, domain.ValidationErrors{{Field: "cart", Message: "must contain at least one item"}}
	}

	c.log.Debugw("Creating Shopify order",
		"sessionID", req.SessionID, "items", len(req.Cart.Items), "currency", req.Cart.Currency)

	payload := buildOrderPayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ordersURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewExternalServiceError("shopify", resp.StatusCode, string(respBody), nil)
	}

	var orderResp orderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.log.Infow("Successfully created Shopify order",
		"orderID", orderResp.Order.ID, "orderNumber", orderResp.Order.OrderNumber, "sessionID", req.SessionID)
	return &orderResp.Order, nil
}

// buildOrderPayload собирает тело заказа: идентичность покупателя, совпадающие
// биллинговый и доставочный адреса, позиции с ценами в основных единицах и одна
// платежная запись с кодом авторизации подтвержденной транзакции.
func buildOrderPayload(req domain.OrderMaterializationRequest) orderPayload {
	items := make([]lineItem, 0, len(req.Cart.Items))
	for _, item := range req.Cart.Items {
		li := lineItem{
			Title:    item.Title,
			Quantity: item.Quantity,
			Price:    domain.MinorToMajor(item.UnitPriceMinor),
			SKU:      item.SKU,
		}
		// VariantRef непрозрачен для нас; в заказ попадает только числовой ID варианта
		if id, err := strconv.ParseInt(item.VariantRef, 10, 64); err == nil {
			li.VariantID = id
		}
		items = append(items, li)
	}

	addr := address{
		FirstName: req.Customer.FirstName,
		LastName:  req.Customer.LastName,
		Address1:  req.Customer.Address,
		Phone:     req.Customer.Phone,
		City:      req.Customer.City,
		Zip:       req.Customer.PostalCode,
		Country:   req.Customer.Country,
	}

	return orderPayload{
		Order: orderBody{
			Email:           req.Customer.Email,
			Currency:        req.Cart.Currency,
			FinancialStatus: "paid",
			SourceName:      "checkout-bridge",
			LineItems:       items,
			Customer: customerBody{
				FirstName: req.Customer.FirstName,
				LastName:  req.Customer.LastName,
				Email:     req.Customer.Email,
				Phone:     req.Customer.Phone,
			},
			BillingAddress:  addr,
			ShippingAddress: addr,
			Transactions: []transaction{
				{
					Kind:          "sale",
					Status:        "success",
					Amount:        domain.MinorToMajor(req.Cart.TotalPriceMinor),
					Currency:      req.Cart.Currency,
					Gateway:       "sumup",
					Authorization: req.TransactionAuth,
				},
			},
		},
	}
}
