package domain

// CustomerRecord представляет данные покупателя, передаваемые клиентом при
// подтверждении платежа. Отдельно не персистится.
type CustomerRecord struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	City       string `json:"city" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// OrderMaterializationRequest объединяет данные покупателя, снимок корзины и
// код авторизации транзакции. Используется ровно один раз на сессию.
type OrderMaterializationRequest struct {
	Customer        CustomerRecord
	Cart            *CartSnapshot
	SessionID       string
	TransactionAuth string // Код подтвержденной транзакции; при отсутствии — ID сессии
}
