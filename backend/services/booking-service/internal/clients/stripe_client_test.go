package clients

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://stripe.test"

func newTestStripe() *StripeClient {
	return NewStripeClient(testBase, "sk_test_123", NewDefaultHTTPClient(time.Second))
}

// captureForm records the decoded request body for later assertions.
func captureForm(dst *url.Values) gock.MatchFunc {
	return func(req *http.Request, _ *gock.Request) (bool, error) {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return false, err
		}
		req.Body = io.NopCloser(bytes.NewReader(raw))
		*dst, err = url.ParseQuery(string(raw))
		return err == nil, err
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	defer gock.Off()

	var form url.Values
	gock.New(testBase).
		Post("/v1/checkout/sessions").
		MatchHeader("Authorization", "Bearer sk_test_123").
		MatchHeader("Content-Type", "application/x-www-form-urlencoded").
		AddMatcher(captureForm(&form)).
		Reply(200).
		JSON(map[string]interface{}{
			"id":             "cs_test_1",
			"url":            "https://checkout.stripe.com/c/pay/cs_test_1",
			"status":         "open",
			"payment_status": "unpaid",
			"payment_intent": nil,
		})

	expires := time.Unix(1741600000, 0)
	session, err := newTestStripe().CreateCheckoutSession(context.Background(), CheckoutParams{
		LineItems: []LineItem{{
			Name:        "EV Charger – Hub A",
			Description: "2025-03-10 @ 09:00-09:30 (30 min)",
			Currency:    "inr",
			UnitAmount:  7500,
			Quantity:    1,
		}},
		SuccessURL: "http://app/booking/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "http://app/booking/cancel",
		Metadata:   map[string]string{"userId": "7", "chargerId": "3"},
		ExpiresAt:  expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "unpaid", session.PaymentStatus)
	assert.Empty(t, session.PaymentIntent)
	assert.True(t, gock.IsDone())

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "7500", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "inr", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "EV Charger – Hub A", form.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "1", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "7", form.Get("metadata[userId]"))
	assert.Equal(t, "1741600000", form.Get("expires_at"))
	assert.Equal(t, "http://app/booking/success?session_id={CHECKOUT_SESSION_ID}", form.Get("success_url"))
}

func TestRetrieveCheckoutSession(t *testing.T) {
	defer gock.Off()

	gock.New(testBase).
		Get("/v1/checkout/sessions/cs_paid").
		Reply(200).
		JSON(map[string]interface{}{"id": "cs_paid", "payment_status": "paid", "payment_intent": "pi_1"})

	session, err := newTestStripe().RetrieveCheckoutSession(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.Equal(t, "paid", session.PaymentStatus)
	assert.Equal(t, "pi_1", session.PaymentIntent)
}

func TestStripeErrorResponse(t *testing.T) {
	defer gock.Off()

	gock.New(testBase).
		Get("/v1/checkout/sessions/cs_missing").
		Reply(404).
		JSON(map[string]interface{}{"error": map[string]string{
			"type":    "invalid_request_error",
			"code":    "resource_missing",
			"message": "No such checkout.session: 'cs_missing'",
		}})

	_, err := newTestStripe().RetrieveCheckoutSession(context.Background(), "cs_missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentGateway)

	var stripeErr *StripeError
	require.True(t, errors.As(err, &stripeErr))
	assert.Equal(t, 404, stripeErr.Status)
	assert.Equal(t, "resource_missing", stripeErr.Code)
}

func TestStripeErrorWithoutBody(t *testing.T) {
	defer gock.Off()

	gock.New(testBase).Post("/v1/checkout/sessions/cs_1/expire").Reply(500).BodyString("oops")

	err := newTestStripe().ExpireCheckoutSession(context.Background(), "cs_1")
	var stripeErr *StripeError
	require.True(t, errors.As(err, &stripeErr))
	assert.Equal(t, 500, stripeErr.Status)
	assert.Equal(t, "api_error", stripeErr.Type)
}

func TestCreateRefund(t *testing.T) {
	defer gock.Off()

	var form url.Values
	gock.New(testBase).
		Post("/v1/refunds").
		AddMatcher(captureForm(&form)).
		Reply(200).
		JSON(map[string]interface{}{"id": "re_1", "status": "succeeded", "amount": 7500})

	refund, err := newTestStripe().CreateRefund(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "re_1", refund.ID)
	assert.Equal(t, "pi_1", form.Get("payment_intent"))
}

func TestTransportFailure(t *testing.T) {
	defer gock.Off()

	gock.New(testBase).Post("/v1/refunds").ReplyError(errors.New("connection reset"))

	_, err := newTestStripe().CreateRefund(context.Background(), "pi_1")
	assert.ErrorIs(t, err, ErrPaymentGateway)
}
