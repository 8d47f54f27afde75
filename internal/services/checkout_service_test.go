package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/internal/events"
	"github.com/Dhoini/checkout-bridge/internal/integration/shopify"
	"github.com/Dhoini/checkout-bridge/internal/integration/sumup"
	"github.com/Dhoini/checkout-bridge/internal/metrics"
	"github.com/Dhoini/checkout-bridge/internal/store"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

// mockProvider is a hand-written PaymentProvider double
type mockProvider struct {
	mu        sync.Mutex
	openFn    func(ctx context.Context, params sumup.OpenCheckoutParams) (*sumup.Checkout, error)
	getFn     func(ctx context.Context, checkoutID string) (*sumup.Checkout, error)
	openCalls int
	getCalls  int
}

func (m *mockProvider) OpenCheckout(ctx context.Context, params sumup.OpenCheckoutParams) (*sumup.Checkout, error) {
	m.mu.Lock()
	m.openCalls++
	m.mu.Unlock()
	return m.openFn(ctx, params)
}

func (m *mockProvider) GetCheckout(ctx context.Context, checkoutID string) (*sumup.Checkout, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	return m.getFn(ctx, checkoutID)
}

// mockCommerce is a hand-written CommerceClient double
type mockCommerce struct {
	mu       sync.Mutex
	createFn func(ctx context.Context, req domain.OrderMaterializationRequest) (*shopify.Order, error)
	calls    int
	lastReq  domain.OrderMaterializationRequest
}

func (m *mockCommerce) CreateOrder(ctx context.Context, req domain.OrderMaterializationRequest) (*shopify.Order, error) {
	m.mu.Lock()
	m.calls++
	m.lastReq = req
	m.mu.Unlock()
	return m.createFn(ctx, req)
}

// recordingProducer captures published lifecycle events
type recordingProducer struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingProducer) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type serviceFixture struct {
	service  *CheckoutService
	store    *store.MemoryStore
	provider *mockProvider
	commerce *mockCommerce
	producer *recordingProducer
}

func newServiceFixture(t *testing.T, provider *mockProvider, commerce *mockCommerce) *serviceFixture {
	t.Helper()

	log := newTestLogger()
	memStore := store.NewMemoryStore(log)
	producer := &recordingProducer{}
	poller := NewPoller(provider, time.Millisecond, 20*time.Millisecond, log)

	service := NewCheckoutService(memStore, provider, commerce, producer, metrics.NoOpMetrics{}, poller, log)
	return &serviceFixture{
		service:  service,
		store:    memStore,
		provider: provider,
		commerce: commerce,
		producer: producer,
	}
}

func paidCheckout(id string) *sumup.Checkout {
	return &sumup.Checkout{
		ID:     id,
		Status: sumup.StatusPending,
		Transactions: []sumup.Transaction{
			{ID: "tx-1", TransactionCode: "TC-7", Status: sumup.TransactionSuccessful},
		},
	}
}

func TestCreateCheckoutValidation(t *testing.T) {
	provider := &mockProvider{}
	f := newServiceFixture(t, provider, &mockCommerce{})
	ctx := context.Background()

	_, err := f.service.CreateCheckout(ctx, CreateCheckoutInput{AmountMinor: 0, Currency: "EUR"})
	require.Error(t, err)
	var verrs domain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = f.service.CreateCheckout(ctx, CreateCheckoutInput{AmountMinor: 1000, Currency: ""})
	require.Error(t, err)
	assert.ErrorAs(t, err, &verrs)

	// Validation rejections never reach the provider
	assert.Zero(t, provider.openCalls)
}

func TestCreateCheckoutTracked(t *testing.T) {
	var gotParams sumup.OpenCheckoutParams
	provider := &mockProvider{
		openFn: func(_ context.Context, params sumup.OpenCheckoutParams) (*sumup.Checkout, error) {
			gotParams = params
			return &sumup.Checkout{ID: "co-1", Status: sumup.StatusPending}, nil
		},
	}
	f := newServiceFixture(t, provider, &mockCommerce{})

	out, err := f.service.CreateCheckout(context.Background(), CreateCheckoutInput{
		AmountMinor:    1000,
		Currency:       "eur",
		OrderReference: "order-42",
		ReturnURL:      "https://shop.example/thanks",
	})
	require.NoError(t, err)
	assert.Equal(t, "co-1", out.SessionID)

	// Currency is normalized before the outbound call
	assert.Equal(t, "EUR", gotParams.Currency)
	assert.Equal(t, int64(1000), gotParams.AmountMinor)
	// Retries of the same order get a unique provider reference
	assert.NotEqual(t, "order-42", gotParams.Reference)
	assert.Contains(t, gotParams.Reference, "order-42-")

	session, err := f.store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCreated, session.Status)
	assert.Equal(t, "order-42", session.OrderReference)
}

func TestCreateCheckoutAnonymousNotTracked(t *testing.T) {
	provider := &mockProvider{
		openFn: func(_ context.Context, _ sumup.OpenCheckoutParams) (*sumup.Checkout, error) {
			return &sumup.Checkout{ID: "co-anon", Status: sumup.StatusPending}, nil
		},
	}
	f := newServiceFixture(t, provider, &mockCommerce{})

	out, err := f.service.CreateCheckout(context.Background(), CreateCheckoutInput{AmountMinor: 500, Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "co-anon", out.SessionID)

	// No order reference, no local record
	_, err = f.store.Get(context.Background(), "co-anon")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateCheckoutProviderFailure(t *testing.T) {
	provider := &mockProvider{
		openFn: func(_ context.Context, _ sumup.OpenCheckoutParams) (*sumup.Checkout, error) {
			return nil, domain.NewExternalServiceError("sumup", 500, `{"message":"boom"}`, nil)
		},
	}
	f := newServiceFixture(t, provider, &mockCommerce{})

	_, err := f.service.CreateCheckout(context.Background(), CreateCheckoutInput{
		AmountMinor:    1000,
		Currency:       "EUR",
		OrderReference: "order-42",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalServiceUnavailable)
}

func TestCheckStatus(t *testing.T) {
	provider := &mockProvider{
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return paidCheckout(id), nil
		},
	}
	f := newServiceFixture(t, provider, &mockCommerce{})

	status, checkout, err := f.service.CheckStatus(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, sumup.StatusPaid, status)
	assert.Equal(t, "co-1", checkout.ID)

	_, _, err = f.service.CheckStatus(context.Background(), "")
	var verrs domain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestCheckStatusReflectsFailure(t *testing.T) {
	provider := &mockProvider{
		openFn: func(_ context.Context, _ sumup.OpenCheckoutParams) (*sumup.Checkout, error) {
			return &sumup.Checkout{ID: "co-1", Status: sumup.StatusPending}, nil
		},
		getFn: func(_ context.Context, id string) (*sumup.Checkout, error) {
			return &sumup.Checkout{ID: id, Status: sumup.StatusFailed}, nil
		},
	}
	f := newServiceFixture(t, provider, &mockCommerce{})

	_, err := f.service.CreateCheckout(context.Background(), CreateCheckoutInput{
		AmountMinor:    1000,
		Currency:       "EUR",
		OrderReference: "order-42",
	})
	require.NoError(t, err)

	status, _, err := f.service.CheckStatus(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, sumup.StatusFailed, status)

	session, err := f.store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFailed, session.Status)
}
