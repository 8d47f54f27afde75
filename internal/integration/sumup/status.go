package sumup

// Статусы checkout-сессии SumUp
const (
	StatusPaid    = "PAID"
	StatusFailed  = "FAILED"
	StatusPending = "PENDING"

	// TransactionSuccessful статус успешной транзакции в списке transactions
	TransactionSuccessful = "SUCCESSFUL"
)

// NormalizedStatus возвращает нормализованный статус checkout-сессии.
// Сырой статус сессии переопределяется на PAID, если список транзакций содержит
// хотя бы одну со статусом SUCCESSFUL: провайдер может отстать с обновлением
// статуса сессии, когда списание уже прошло. Правило применяется везде, где
// потребляется статус.
func NormalizedStatus(checkout *Checkout) string {
	if checkout == nil {
		return StatusPending
	}
	for _, tx := range checkout.Transactions {
		if tx.Status == TransactionSuccessful {
			return StatusPaid
		}
	}
	return checkout.Status
}

// IsTerminal проверяет, является ли нормализованный статус терминальным.
// PAID — успех, FAILED — отказ; все остальные значения требуют продолжения опроса.
func IsTerminal(status string) bool {
	return status == StatusPaid || status == StatusFailed
}

// SuccessfulTransaction возвращает первую успешную транзакцию сессии, если есть
func (c *Checkout) SuccessfulTransaction() *Transaction {
	for i := range c.Transactions {
		if c.Transactions[i].Status == TransactionSuccessful {
			return &c.Transactions[i]
		}
	}
	return nil
}

// AuthorizationCode возвращает код авторизации для аудита: код подтвержденной
// транзакции, при его отсутствии — идентификатор сессии.
func (c *Checkout) AuthorizationCode() string {
	if tx := c.SuccessfulTransaction(); tx != nil && tx.TransactionCode != "" {
		return tx.TransactionCode
	}
	return c.ID
}
