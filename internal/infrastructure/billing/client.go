// Package billing implements the subscription provider boundary against
// a Stripe-compatible REST API.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

const (
	defaultBaseURL = "https://api.stripe.com"
	// Maximum response body size accepted from the provider (1MB)
	maxResponseSize = 1 << 20
)

// Client talks to the provider's REST API with bearer authentication.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logger.Interface
}

func NewClient(apiKey string, requestTimeout time.Duration, log logger.Interface) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: log.Named("billing"),
	}
}

// WithBaseURL points the client at an alternate endpoint. Test hook.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

var _ domain.Provider = (*Client)(nil)

type customerPayload struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
	Created  int64             `json:"created"`
}

type subscriptionPayload struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Plan     struct {
		ID string `json:"id"`
	} `json:"plan"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	TrialStart       int64             `json:"trial_start"`
	TrialEnd         int64             `json:"trial_end"`
	Created          int64             `json:"created"`
	Metadata         map[string]string `json:"metadata"`
}

type listPayload[T any] struct {
	Data []T `json:"data"`
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var payload customerPayload
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+url.PathEscape(customerID), nil, &payload); err != nil {
		return nil, err
	}
	return customerFromPayload(payload), nil
}

func (c *Client) ListCustomersByEmail(ctx context.Context, email string) ([]domain.Customer, error) {
	query := url.Values{"email": {email}}
	var payload listPayload[customerPayload]
	if err := c.do(ctx, http.MethodGet, "/v1/customers?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(payload.Data))
	for _, p := range payload.Data {
		customers = append(customers, *customerFromPayload(p))
	}
	return customers, nil
}

func (c *Client) UpdateCustomerMetadata(ctx context.Context, customerID string, metadata map[string]string) error {
	form := url.Values{}
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	var payload customerPayload
	return c.do(ctx, http.MethodPost, "/v1/customers/"+url.PathEscape(customerID), strings.NewReader(form.Encode()), &payload)
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	var payload subscriptionPayload
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil, &payload); err != nil {
		return nil, err
	}
	return subscriptionFromPayload(payload), nil
}

func (c *Client) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]domain.Subscription, error) {
	query := url.Values{"customer": {customerID}, "status": {"all"}}
	var payload listPayload[subscriptionPayload]
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	subs := make([]domain.Subscription, 0, len(payload.Data))
	for _, p := range payload.Data {
		subs = append(subs, *subscriptionFromPayload(p))
	}
	return subs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warnw("provider returned non-success status",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

func customerFromPayload(p customerPayload) *domain.Customer {
	return &domain.Customer{
		ID:       p.ID,
		Email:    p.Email,
		Metadata: p.Metadata,
		Created:  p.Created,
	}
}

func subscriptionFromPayload(p subscriptionPayload) *domain.Subscription {
	return &domain.Subscription{
		ID:               p.ID,
		CustomerID:       p.Customer,
		Status:           p.Status,
		Plan:             p.Plan.ID,
		CurrentPeriodEnd: p.CurrentPeriodEnd,
		TrialStart:       p.TrialStart,
		TrialEnd:         p.TrialEnd,
		Created:          p.Created,
		Metadata:         p.Metadata,
	}
}
