package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/auth"
)

const subscriptionUpdatedJSON = `{
	"id": "evt_1",
	"type": "customer.subscription.updated",
	"data": {
		"object": {
			"id": "sub_456",
			"customer": "cus_123",
			"status": "active",
			"plan": {"id": "plan_pro"},
			"current_period_end": 1735689600,
			"metadata": {"uid": "u1"}
		}
	}
}`

type statusEnvelope struct {
	Data struct {
		Status  string `json:"status"`
		Plan    string `json:"plan"`
		Premium bool   `json:"premium"`
	} `json:"data"`
}

func (s *testServer) subscriptionStatus(t *testing.T, token string) statusEnvelope {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/subscription/status", "", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp statusEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSubscriptionStatusRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/subscription/status", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubscriptionStatusWithoutSubscription(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, auth.Identity{UID: "u1"})

	resp := s.subscriptionStatus(t, token)
	assert.Equal(t, "none", resp.Data.Status)
	assert.False(t, resp.Data.Premium)
}

func TestWebhookAppliesSubscriptionEvent(t *testing.T) {
	s := newTestServer(t)
	s.provider.subscriptions["sub_456"] = &billing.Subscription{
		ID:               "sub_456",
		CustomerID:       "cus_123",
		Status:           "active",
		Plan:             "plan_pro",
		CurrentPeriodEnd: 1735689600,
		Metadata:         map[string]string{"uid": "u1"},
	}

	payload := subscriptionUpdatedJSON
	rec := s.do(t, http.MethodPost, "/api/webhooks/billing", payload,
		withHeader("Stripe-Signature", s.webhook.SignForTest([]byte(payload), time.Now())))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"received":true`)

	resp := s.subscriptionStatus(t, s.token(t, auth.Identity{UID: "u1"}))
	assert.Equal(t, "active", resp.Data.Status)
	assert.Equal(t, "plan_pro", resp.Data.Plan)
	assert.True(t, resp.Data.Premium)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/webhooks/billing", subscriptionUpdatedJSON,
		withHeader("Stripe-Signature", "t=123,v1=deadbeef"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid webhook signature")
}

func TestWebhookRejectsStaleSignature(t *testing.T) {
	s := newTestServer(t)

	payload := subscriptionUpdatedJSON
	rec := s.do(t, http.MethodPost, "/api/webhooks/billing", payload,
		withHeader("Stripe-Signature", s.webhook.SignForTest([]byte(payload), time.Now().Add(-10*time.Minute))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookApplyFailureReturns500(t *testing.T) {
	s := newTestServer(t)

	// Checkout events fetch the subscription from the provider; the
	// stub has nothing seeded so the apply fails and the provider
	// should redeliver.
	payload := `{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"customer": "cus_123",
				"subscription": "sub_missing",
				"client_reference_id": "u1"
			}
		}
	}`
	rec := s.do(t, http.MethodPost, "/api/webhooks/billing", payload,
		withHeader("Stripe-Signature", s.webhook.SignForTest([]byte(payload), time.Now())))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	s := newTestServer(t)

	payload := `{"id":"evt_3","type":"invoice.paid","data":{"object":{}}}`
	rec := s.do(t, http.MethodPost, "/api/webhooks/billing", payload,
		withHeader("Stripe-Signature", s.webhook.SignForTest([]byte(payload), time.Now())))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
