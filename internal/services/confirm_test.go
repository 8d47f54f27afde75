package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/internal/events"
	"github.com/Dhoini/checkout-bridge/internal/integration/shopify"
	"github.com/Dhoini/checkout-bridge/internal/integration/sumup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCustomer() domain.CustomerRecord {
	return domain.CustomerRecord{
		FirstName:  "Anna",
		LastName:   "Schmidt",
		Email:      "anna@example.com",
		Address:    "Hauptstrasse 1",
		PostalCode: "10115",
		City:       "Berlin",
		Country:    "Germany",
	}
}

func testCart() *domain.CartSnapshot {
	return &domain.CartSnapshot{
		Items:           []domain.CartItem{{Title: "Mug", Quantity: 1, UnitPriceMinor: 1000}},
		TotalPriceMinor: 1000,
		Currency:        "EUR",
	}
}

func seedSession(t *testing.T, f *serviceFixture, id string) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), &domain.CheckoutSession{
		SessionID:      id,
		OrderReference: "order-42",
		AmountMinor:    1000,
		Currency:       "EUR",
		CreatedAt:      time.Now().UTC(),
		Status:         domain.SessionCreated,
	}))
}

func TestConfirmPaymentSuccess(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{
		createFn: func(_ context.Context, _ domain.OrderMaterializationRequest) (*shopify.Order, error) {
			return &shopify.Order{ID: 100, OrderNumber: 1234, Name: "#1234"}, nil
		},
	}
	f := newServiceFixture(t, provider, commerce)
	seedSession(t, f, "co-1")

	result, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
		SessionID: "co-1",
		Customer:  validCustomer(),
		Cart:      testCart(),
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, sumup.StatusPaid, result.Status)
	require.NotNil(t, result.Order)
	assert.Equal(t, int64(100), result.Order.ID)
	assert.False(t, result.Deduplicated)

	// Authorization code of the successful transaction reaches the order
	assert.Equal(t, "TC-7", commerce.lastReq.TransactionAuth)

	session, err := f.store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionConfirmed, session.Status)

	assert.Equal(t, []string{events.EventCheckoutConfirmed}, f.producer.types())
}

func TestConfirmPaymentInvalidCustomer(t *testing.T) {
	provider := &mockProvider{}
	f := newServiceFixture(t, provider, &mockCommerce{})

	customer := validCustomer()
	customer.Email = "not-an-email"

	_, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
		SessionID: "co-1",
		Customer:  customer,
		Cart:      testCart(),
	})
	require.Error(t, err)

	var verrs domain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	// Validation rejection happens before any provider contact
	assert.Zero(t, provider.getCalls)
}

func TestConfirmPaymentMissingSessionID(t *testing.T) {
	f := newServiceFixture(t, &mockProvider{}, &mockCommerce{})

	_, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{Customer: validCustomer()})
	var verrs domain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestConfirmPaymentFailed(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return &sumup.Checkout{ID: id, Status: sumup.StatusFailed}, nil
		},
	}
	commerce := &mockCommerce{}
	f := newServiceFixture(t, provider, commerce)
	seedSession(t, f, "co-1")

	result, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
		SessionID: "co-1",
		Customer:  validCustomer(),
		Cart:      testCart(),
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, sumup.StatusFailed, result.Status)
	assert.Zero(t, commerce.calls)

	session, err := f.store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFailed, session.Status)

	assert.Equal(t, []string{events.EventCheckoutFailed}, f.producer.types())
}

func TestConfirmPaymentPartialSuccess(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{
		createFn: func(_ context.Context, _ domain.OrderMaterializationRequest) (*shopify.Order, error) {
			return nil, domain.NewExternalServiceError("shopify", 500, `{"errors":"boom"}`, nil)
		},
	}
	f := newServiceFixture(t, provider, commerce)
	seedSession(t, f, "co-1")

	result, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
		SessionID: "co-1",
		Customer:  validCustomer(),
		Cart:      testCart(),
	})
	require.NoError(t, err)

	// The charge stands; the order failure surfaces as partial success
	assert.Equal(t, OutcomePartialSuccess, result.Outcome)
	assert.Nil(t, result.Order)
	assert.Equal(t, 1, commerce.calls)

	session, err := f.store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionConfirmed, session.Status)

	assert.Equal(t, []string{events.EventOrderReconciliationNeeded}, f.producer.types())
}

func TestConfirmPaymentTrackingOnly(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{}
	f := newServiceFixture(t, provider, commerce)

	// Untracked session, no cart anywhere: confirmation is recorded, no order
	result, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
		SessionID: "co-anon",
		Customer:  validCustomer(),
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeTrackingOnly, result.Outcome)
	assert.Zero(t, commerce.calls)

	require.Len(t, f.producer.events, 1)
	assert.Equal(t, events.EventCheckoutConfirmed, f.producer.events[0].Type)
	assert.Equal(t, "tracking_only", f.producer.events[0].Detail)
}

func TestConfirmPaymentCartFallsBackToStored(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{
		createFn: func(_ context.Context, _ domain.OrderMaterializationRequest) (*shopify.Order, error) {
			return &shopify.Order{ID: 100, OrderNumber: 1234}, nil
		},
	}
	f := newServiceFixture(t, provider, commerce)

	require.NoError(t, f.store.Put(context.Background(), &domain.CheckoutSession{
		SessionID:      "co-1",
		OrderReference: "order-42",
		AmountMinor:    1000,
		Currency:       "EUR",
		Cart:           testCart(),
		CreatedAt:      time.Now().UTC(),
		Status:         domain.SessionCreated,
	}))

	result, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
		SessionID: "co-1",
		Customer:  validCustomer(),
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	require.NotNil(t, commerce.lastReq.Cart)
	assert.Equal(t, int64(1000), commerce.lastReq.Cart.TotalPriceMinor)
}

func TestConfirmPaymentTimedOut(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return &sumup.Checkout{ID: id, Status: sumup.StatusPending}, nil
		},
	}
	commerce := &mockCommerce{}
	f := newServiceFixture(t, provider, commerce)
	seedSession(t, f, "co-1")

	result, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
		SessionID: "co-1",
		Customer:  validCustomer(),
		Cart:      testCart(),
	})
	// Soft stop: no error, no claim of success or failure
	require.NoError(t, err)

	assert.Equal(t, OutcomeTimedOut, result.Outcome)
	assert.Zero(t, commerce.calls)

	session, err := f.store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionTimedOut, session.Status)
}

func TestConfirmPaymentDeduplicated(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{
		createFn: func(_ context.Context, _ domain.OrderMaterializationRequest) (*shopify.Order, error) {
			return &shopify.Order{ID: 100, OrderNumber: 1234}, nil
		},
	}
	f := newServiceFixture(t, provider, commerce)
	seedSession(t, f, "co-1")

	input := ConfirmInput{SessionID: "co-1", Customer: validCustomer(), Cart: testCart()}

	first, err := f.service.ConfirmPayment(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, first.Outcome)
	assert.False(t, first.Deduplicated)

	second, err := f.service.ConfirmPayment(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, second.Outcome)
	assert.True(t, second.Deduplicated)
	assert.Nil(t, second.Order)

	// One order for the whole session
	assert.Equal(t, 1, commerce.calls)
}

func TestConfirmPaymentUntrackedExactlyOnce(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{
		createFn: func(_ context.Context, _ domain.OrderMaterializationRequest) (*shopify.Order, error) {
			return &shopify.Order{ID: 100, OrderNumber: 1234}, nil
		},
	}
	f := newServiceFixture(t, provider, commerce)

	// Untracked session with an echoed cart: no store record to deduplicate on
	input := ConfirmInput{SessionID: "co-anon", Customer: validCustomer(), Cart: testCart()}

	first, err := f.service.ConfirmPayment(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, first.Outcome)
	assert.False(t, first.Deduplicated)

	second, err := f.service.ConfirmPayment(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, second.Outcome)
	assert.True(t, second.Deduplicated)
	assert.Nil(t, second.Order)

	// One charge, one order
	assert.Equal(t, 1, commerce.calls)
}

func TestConfirmPaymentTimedOutThenPaid(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{
		createFn: func(_ context.Context, _ domain.OrderMaterializationRequest) (*shopify.Order, error) {
			return &shopify.Order{ID: 100, OrderNumber: 1234}, nil
		},
	}
	f := newServiceFixture(t, provider, commerce)

	// A session that already exhausted its polling window, now resolved late
	require.NoError(t, f.store.Put(context.Background(), &domain.CheckoutSession{
		SessionID:      "co-1",
		OrderReference: "order-42",
		AmountMinor:    1000,
		Currency:       "EUR",
		CreatedAt:      time.Now().UTC(),
		Status:         domain.SessionTimedOut,
	}))

	input := ConfirmInput{SessionID: "co-1", Customer: validCustomer(), Cart: testCart()}

	first, err := f.service.ConfirmPayment(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, first.Outcome)

	// The late resolution reaches the store
	session, err := f.store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionConfirmed, session.Status)

	second, err := f.service.ConfirmPayment(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)

	assert.Equal(t, 1, commerce.calls)
}

func TestConfirmPaymentReleasesLatch(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{
		createFn: func(_ context.Context, _ domain.OrderMaterializationRequest) (*shopify.Order, error) {
			return &shopify.Order{ID: 100, OrderNumber: 1234}, nil
		},
	}
	f := newServiceFixture(t, provider, commerce)
	seedSession(t, f, "co-1")

	_, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
		SessionID: "co-1",
		Customer:  validCustomer(),
		Cart:      testCart(),
	})
	require.NoError(t, err)

	f.service.mu.Lock()
	_, hasLatch := f.service.latches["co-1"]
	_, isConfirmed := f.service.confirmed["co-1"]
	f.service.mu.Unlock()

	// The one-way edge is recorded and the latch no longer accumulates
	assert.False(t, hasLatch)
	assert.True(t, isConfirmed)
}

func TestConfirmPaymentConcurrentExactlyOnce(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	commerce := &mockCommerce{
		createFn: func(_ context.Context, _ domain.OrderMaterializationRequest) (*shopify.Order, error) {
			time.Sleep(5 * time.Millisecond) // widen the race window
			return &shopify.Order{ID: 100, OrderNumber: 1234}, nil
		},
	}
	f := newServiceFixture(t, provider, commerce)
	seedSession(t, f, "co-1")

	const workers = 8
	results := make([]*ConfirmResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.service.ConfirmPayment(context.Background(), ConfirmInput{
				SessionID: "co-1",
				Customer:  validCustomer(),
				Cart:      testCart(),
			})
			require.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	// Exactly one materialization regardless of concurrency
	assert.Equal(t, 1, commerce.calls)

	deduplicated := 0
	for _, result := range results {
		assert.Equal(t, OutcomeSuccess, result.Outcome)
		if result.Deduplicated {
			deduplicated++
		}
	}
	assert.Equal(t, workers-1, deduplicated)
}
