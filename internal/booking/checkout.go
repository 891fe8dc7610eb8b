package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// PaymentBackend is the backend side of a payment. *sdk.Client satisfies it.
type PaymentBackend interface {
	CreatePaymentIntent(ctx context.Context, amount int64) (*sdk.PaymentIntent, error)
	RecordPayment(ctx context.Context, payment sdk.Payment) (*sdk.Payment, error)
}

// Processor completes the hosted payment for an intent and returns the
// processor's transaction ID.
type Processor interface {
	Confirm(ctx context.Context, clientSecret string, amount int64) (transactionID string, err error)
}

// ConfirmedTransaction is a Processor for payments already completed in the
// hosted form; it returns the transaction ID the visitor was given.
type ConfirmedTransaction string

// Confirm implements Processor.
func (t ConfirmedTransaction) Confirm(context.Context, string, int64) (string, error) {
	if t == "" {
		return "", errors.New("transaction ID is required")
	}
	return string(t), nil
}

// Pay charges quote.Total for an approved booking and records the payment. A
// booking a coupon covers in full is recorded as a zero-amount payment without
// going through processor.
func Pay(ctx context.Context, backend PaymentBackend, processor Processor, b sdk.Booking, quote Quote) (*sdk.Payment, error) {
	if b.Status != sdk.BookingApproved {
		return nil, fmt.Errorf("booking %s is %s; only approved bookings can be paid", b.ID, b.Status)
	}
	switch {
	case quote.Total < 0, quote.Total == 0 && quote.Coupon == nil:
		return nil, fmt.Errorf("nothing to pay for booking %s", b.ID)
	}

	var transactionID string
	if quote.Total == 0 {
		// Fully covered by the coupon; no charge goes to the processor.
		transactionID = "coupon:" + quote.Coupon.Code
	} else {
		intent, err := backend.CreatePaymentIntent(ctx, quote.Total)
		if err != nil {
			return nil, fmt.Errorf("failed to create payment intent: %w", err)
		}
		transactionID, err = processor.Confirm(ctx, intent.ClientSecret, quote.Total)
		if err != nil {
			return nil, fmt.Errorf("payment was not completed: %w", err)
		}
	}

	payment := sdk.Payment{
		BookingID:     b.ID,
		Email:         b.Email,
		Amount:        quote.Total,
		TransactionID: transactionID,
	}
	if quote.Coupon != nil {
		payment.CouponCode = quote.Coupon.Code
	}
	recorded, err := backend.RecordPayment(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("payment %s succeeded but could not be recorded: %w", transactionID, err)
	}
	return recorded, nil
}
