package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/orders"
	"storefront/internal/stores/kv"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

type recordedEvents struct {
	mu   sync.Mutex
	paid []int64
	err  error
}

func (r *recordedEvents) PublishOrderPaid(_ context.Context, o orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.paid = append(r.paid, o.ID)
	return nil
}

const webhookSecret = "whsec_test"

func newWebhookServer(t *testing.T, events *recordedEvents) (http.Handler, orders.Order) {
	t.Helper()
	keys, err := auth.NewKeys([]byte("test-secret"))
	require.NoError(t, err)
	oc, err := orders.NewConf(orders.NewKVRepository(kv.NewMemory()), nil)
	require.NoError(t, err)
	o, err := oc.CreateOrder(context.Background(), orders.Order{
		UserID:           "u1",
		Total:            decimal.NewFromInt(1220),
		PaymentMethod:    orders.PaymentUPI,
		PaymentReference: "pi_123",
	})
	require.NoError(t, err)

	r := API("/v1", Deps{
		Orders:        oc,
		Keys:          keys,
		Users:         auth.NewService(keys, time.Hour),
		Events:        events,
		WebhookSecret: webhookSecret,
	})
	return r, o
}

func postEvent(r http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signed(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  webhookSecret,
	}).Header
}

func TestWebhookPaymentSucceeded(t *testing.T) {
	events := &recordedEvents{}
	r, o := newWebhookServer(t, events)

	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`)
	w := postEvent(r, payload, signed(payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int64{o.ID}, events.paid)

	unknown := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_999","object":"payment_intent"}}}`)
	w = postEvent(r, unknown, signed(unknown))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no matching order")
	assert.Len(t, events.paid, 1)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	events := &recordedEvents{}
	r, _ := newWebhookServer(t, events)

	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`)
	w := postEvent(r, payload, "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = postEvent(r, payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, events.paid)
}

func TestWebhookOtherEvents(t *testing.T) {
	events := &recordedEvents{}
	r, _ := newWebhookServer(t, events)

	failed := []byte(`{"id":"evt_3","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`)
	w := postEvent(r, failed, signed(failed))
	assert.Equal(t, http.StatusOK, w.Code)

	other := []byte(`{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
	w = postEvent(r, other, signed(other))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Event type not handled")
	assert.Empty(t, events.paid)
}

func TestWebhookPublishFailureAsksForRetry(t *testing.T) {
	events := &recordedEvents{err: errors.New("broker down")}
	r, _ := newWebhookServer(t, events)

	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`)
	w := postEvent(r, payload, signed(payload))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
