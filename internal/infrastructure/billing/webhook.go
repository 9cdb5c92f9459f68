package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/biztime"
)

// signatureTolerance bounds how old a signed timestamp may be before
// the delivery is treated as a replay.
const signatureTolerance = 5 * time.Minute

// HMACWebhookVerifier validates provider webhook signatures of the
// form "t=<unix>,v1=<hex hmac>" where the hmac covers "<unix>.<body>".
type HMACWebhookVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewHMACWebhookVerifier(secret string) *HMACWebhookVerifier {
	return &HMACWebhookVerifier{
		secret: []byte(secret),
		now:    biztime.NowUTC,
	}
}

// WithClock overrides the verifier's clock. Test hook.
func (v *HMACWebhookVerifier) WithClock(now func() time.Time) *HMACWebhookVerifier {
	v.now = now
	return v
}

var _ domain.WebhookVerifier = (*HMACWebhookVerifier)(nil)

type eventPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutPayload struct {
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

func (v *HMACWebhookVerifier) ConstructEvent(payload []byte, signature string) (*domain.Event, error) {
	timestamp, mac, err := parseSignatureHeader(signature)
	if err != nil {
		return nil, err
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return nil, fmt.Errorf("webhook timestamp outside tolerance")
	}

	expected := computeSignature(v.secret, timestamp, payload)
	if !hmac.Equal([]byte(mac), []byte(expected)) {
		return nil, fmt.Errorf("webhook signature mismatch")
	}

	var ep eventPayload
	if err := json.Unmarshal(payload, &ep); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	if ep.ID == "" || ep.Type == "" {
		return nil, fmt.Errorf("webhook payload missing id or type")
	}

	event := &domain.Event{ID: ep.ID, Type: ep.Type}
	switch ep.Type {
	case domain.EventCheckoutCompleted:
		var cp checkoutPayload
		if err := json.Unmarshal(ep.Data.Object, &cp); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		event.Checkout = &domain.CheckoutSession{
			CustomerID:        cp.Customer,
			SubscriptionID:    cp.Subscription,
			ClientReferenceID: cp.ClientReferenceID,
			Metadata:          cp.Metadata,
		}
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var sp subscriptionPayload
		if err := json.Unmarshal(ep.Data.Object, &sp); err != nil {
			return nil, fmt.Errorf("failed to decode subscription object: %w", err)
		}
		event.Subscription = subscriptionFromPayload(sp)
	}

	return event, nil
}

// SignForTest produces a header ConstructEvent accepts. Test helper.
func (v *HMACWebhookVerifier) SignForTest(payload []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(v.secret, ts, payload))
}

func parseSignatureHeader(header string) (int64, string, error) {
	var timestamp int64
	var mac string
	for _, part := range strings.Split(header, ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid webhook timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			mac = val
		}
	}
	if timestamp == 0 || mac == "" {
		return 0, "", fmt.Errorf("malformed webhook signature header")
	}
	return timestamp, mac, nil
}

func computeSignature(secret []byte, timestamp int64, payload []byte) string {
	h := hmac.New(sha256.New, secret)
	fmt.Fprintf(h, "%d.", timestamp)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
