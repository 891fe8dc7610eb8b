package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CreatePaymentIntent asks the backend to open a processor payment for amount
// (minor units). The returned client secret is handed to the hosted payment form.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64) (*PaymentIntent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	var intent PaymentIntent
	if err := c.do(ctx, &Request{
		Method:       http.MethodPost,
		Path:         "/payments/intent",
		Body:         map[string]int64{"amount": amount},
		RequiresAuth: true,
	}, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// RecordPayment forwards a processor confirmation to the backend. The backend
// marks the booking confirmed.
func (c *Client) RecordPayment(ctx context.Context, payment Payment) (*Payment, error) {
	if payment.BookingID == "" {
		return nil, fmt.Errorf("booking ID is required")
	}
	if payment.TransactionID == "" {
		return nil, fmt.Errorf("transaction ID is required")
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	var recorded Payment
	if err := c.do(ctx, &Request{
		Method:       http.MethodPost,
		Path:         "/payments",
		Body:         payment,
		RequiresAuth: true,
	}, &recorded); err != nil {
		return nil, err
	}
	return &recorded, nil
}

// ListPayments returns the payment history for email.
func (c *Client) ListPayments(ctx context.Context, email string) ([]Payment, error) {
	query := url.Values{}
	if email != "" {
		query.Set("email", email)
	}
	var payments []Payment
	if err := c.do(ctx, &Request{
		Method:       http.MethodGet,
		Path:         "/payments",
		Query:        query,
		RequiresAuth: true,
	}, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
