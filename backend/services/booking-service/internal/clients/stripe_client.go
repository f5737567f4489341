package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultStripeBaseURL is the public Stripe API host.
const DefaultStripeBaseURL = "https://api.stripe.com"

// ErrPaymentGateway wraps every failed call to the payment gateway.
var ErrPaymentGateway = errors.New("payment gateway error")

// StripeError is the error object returned by the Stripe API.
type StripeError struct {
	Status  int    `json:"-"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StripeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe %d %s (%s): %s", e.Status, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe %d %s: %s", e.Status, e.Type, e.Message)
}

// LineItem is a single priced checkout line.
type LineItem struct {
	Name        string
	Description string
	Currency    string
	UnitAmount  int64
	Quantity    int
}

// CheckoutParams describes a hosted checkout session.
type CheckoutParams struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
	ExpiresAt  time.Time
}

// CheckoutSession is the subset of the Stripe session object the service reads.
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	PaymentIntent string `json:"payment_intent"`
	ExpiresAt     int64  `json:"expires_at"`
}

// Refund is the subset of the Stripe refund object the service reads.
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// StripeClient talks to the Stripe REST API.
type StripeClient struct {
	base *BaseClient
}

// NewStripeClient builds a client authenticating with secretKey.
func NewStripeClient(baseURL, secretKey string, doer HTTPDoer) *StripeClient {
	if baseURL == "" {
		baseURL = DefaultStripeBaseURL
	}
	return &StripeClient{base: NewBaseClient(baseURL, doer, map[string]string{
		"Authorization": "Bearer " + secretKey,
	})}
}

// CreateCheckoutSession starts a payment-mode checkout.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	for i, item := range p.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", item.Currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.Description != "" {
			form.Set(prefix+"[price_data][product_data][description]", item.Description)
		}
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}
	for k, v := range p.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	if !p.ExpiresAt.IsZero() {
		form.Set("expires_at", strconv.FormatInt(p.ExpiresAt.Unix(), 10))
	}

	var session CheckoutSession
	if err := c.call(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RetrieveCheckoutSession fetches a session by id.
func (c *StripeClient) RetrieveCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.call(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ExpireCheckoutSession closes an open session so it can no longer be paid.
func (c *StripeClient) ExpireCheckoutSession(ctx context.Context, id string) error {
	var session CheckoutSession
	return c.call(ctx, http.MethodPost, "/v1/checkout/sessions/"+url.PathEscape(id)+"/expire", nil, &session)
}

// CreateRefund refunds the full amount of a payment intent.
func (c *StripeClient) CreateRefund(ctx context.Context, paymentIntentID string) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)

	var refund Refund
	if err := c.call(ctx, http.MethodPost, "/v1/refunds", form, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *StripeClient) call(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	status, body, err := c.base.Do(ctx, method, path, form)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrPaymentGateway, method, path, err)
	}

	if status < 200 || status >= 300 {
		var envelope struct {
			Error *StripeError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) != nil || envelope.Error == nil {
			envelope.Error = &StripeError{Type: "api_error", Message: http.StatusText(status)}
		}
		envelope.Error.Status = status
		return fmt.Errorf("%w: %w", ErrPaymentGateway, envelope.Error)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrPaymentGateway, path, err)
	}
	return nil
}
