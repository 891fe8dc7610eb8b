package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/terraconstructs/courtbook/pkg/sdk"
)

var (
	now   = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	court = sdk.Court{ID: "c1", Name: "Centre", PricePerSlot: 1250, Slots: []string{"08:00", "09:00", "10:00"}}
)

func TestSelectionValidate(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
		want error
	}{
		{"ok", Selection{Court: court, Date: "2026-03-14", Slots: []string{"08:00", "10:00"}}, nil},
		{"no slots", Selection{Court: court, Date: "2026-03-14"}, ErrNoSlots},
		{"bad date", Selection{Court: court, Date: "14/03/2026", Slots: []string{"08:00"}}, ErrInvalidDate},
		{"past", Selection{Court: court, Date: "2026-03-13", Slots: []string{"08:00"}}, ErrDateInPast},
		{"unknown slot", Selection{Court: court, Date: "2026-03-15", Slots: []string{"07:00"}}, ErrUnknownSlot},
		{"duplicate", Selection{Court: court, Date: "2026-03-15", Slots: []string{"08:00", "08:00"}}, ErrDuplicateSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate(now)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPrice(t *testing.T) {
	expired := now.Add(-time.Hour)
	later := now.Add(time.Hour)
	sel := Selection{Court: court, Date: "2026-03-14", Slots: []string{"08:00", "09:00", "10:00"}}
	if got := sel.Subtotal(); got != 3750 {
		t.Fatalf("Subtotal() = %d, want 3750", got)
	}

	tests := []struct {
		name         string
		coupon       *sdk.Coupon
		wantDiscount int64
		wantTotal    int64
		wantErr      error
	}{
		{"no coupon", nil, 0, 3750, nil},
		{"ten percent", &sdk.Coupon{Code: "TEN", DiscountPercent: 10, Active: true}, 375, 3375, nil},
		{"rounds half up", &sdk.Coupon{Code: "THIRD", DiscountPercent: 33, Active: true, ExpiresAt: &later}, 1238, 2512, nil},
		{"free", &sdk.Coupon{Code: "FREE", DiscountPercent: 100, Active: true}, 3750, 0, nil},
		{"inactive", &sdk.Coupon{Code: "OFF", DiscountPercent: 10}, 0, 0, ErrCouponInactive},
		{"expired", &sdk.Coupon{Code: "OLD", DiscountPercent: 10, Active: true, ExpiresAt: &expired}, 0, 0, ErrCouponExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := Price(sel.Subtotal(), tt.coupon, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Price() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Price() error = %v", err)
			}
			if quote.Discount != tt.wantDiscount || quote.Total != tt.wantTotal {
				t.Fatalf("Price() = discount %d total %d, want %d %d", quote.Discount, quote.Total, tt.wantDiscount, tt.wantTotal)
			}
		})
	}
}

type couponTable map[string]sdk.Coupon

func (c couponTable) FindCoupon(_ context.Context, code string) (*sdk.Coupon, error) {
	coupon, ok := c[code]
	if !ok {
		return nil, &sdk.APIError{StatusCode: 404, Method: "GET", Path: "/coupons/by-code/" + code}
	}
	return &coupon, nil
}

func TestLookupCoupon(t *testing.T) {
	table := couponTable{
		"SPRING": {Code: "SPRING", DiscountPercent: 20, Active: true},
		"PAUSED": {Code: "PAUSED", DiscountPercent: 20},
	}

	coupon, err := LookupCoupon(context.Background(), table, "  spring ", now)
	if err != nil {
		t.Fatalf("LookupCoupon() error = %v", err)
	}
	if coupon.DiscountPercent != 20 {
		t.Fatalf("LookupCoupon() discount = %d, want 20", coupon.DiscountPercent)
	}

	if _, err := LookupCoupon(context.Background(), table, "winter", now); !errors.Is(err, sdk.ErrNotFound) {
		t.Fatalf("LookupCoupon(winter) error = %v, want ErrNotFound", err)
	}
	if _, err := LookupCoupon(context.Background(), table, "paused", now); !errors.Is(err, ErrCouponInactive) {
		t.Fatalf("LookupCoupon(paused) error = %v, want ErrCouponInactive", err)
	}
}

func TestFormatAmount(t *testing.T) {
	for amount, want := range map[int64]string{0: "0.00", 5: "0.05", 1250: "12.50", -375: "-3.75"} {
		if got := FormatAmount(amount); got != want {
			t.Errorf("FormatAmount(%d) = %q, want %q", amount, got, want)
		}
	}
}

type fakePayments struct {
	intents      int
	intentAmount int64
	recorded     *sdk.Payment
}

func (f *fakePayments) CreatePaymentIntent(_ context.Context, amount int64) (*sdk.PaymentIntent, error) {
	f.intents++
	f.intentAmount = amount
	return &sdk.PaymentIntent{ClientSecret: "secret"}, nil
}

func (f *fakePayments) RecordPayment(_ context.Context, p sdk.Payment) (*sdk.Payment, error) {
	f.recorded = &p
	return &p, nil
}

func TestPay(t *testing.T) {
	backend := &fakePayments{}
	b := sdk.Booking{ID: "b1", Email: "a@x.com", Status: sdk.BookingApproved}
	quote := Quote{Subtotal: 2500, Discount: 250, Total: 2250, Coupon: &sdk.Coupon{Code: "TEN"}}

	payment, err := Pay(context.Background(), backend, ConfirmedTransaction("tx-1"), b, quote)
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if backend.intentAmount != 2250 {
		t.Fatalf("intent amount = %d, want 2250", backend.intentAmount)
	}
	if payment.TransactionID != "tx-1" || payment.CouponCode != "TEN" || payment.BookingID != "b1" {
		t.Fatalf("unexpected payment %+v", payment)
	}

	b.Status = sdk.BookingPending
	if _, err := Pay(context.Background(), &fakePayments{}, ConfirmedTransaction("tx-2"), b, quote); err == nil {
		t.Fatal("Pay() on a pending booking should fail")
	}
	b.Status = sdk.BookingApproved
	if _, err := Pay(context.Background(), &fakePayments{}, ConfirmedTransaction(""), b, quote); err == nil {
		t.Fatal("Pay() without a transaction should fail")
	}
}

func TestPay_CouponCoversFullAmount(t *testing.T) {
	backend := &fakePayments{}
	b := sdk.Booking{ID: "b2", Email: "a@x.com", Status: sdk.BookingApproved}
	quote := Quote{Subtotal: 2500, Discount: 2500, Total: 0, Coupon: &sdk.Coupon{Code: "FREE"}}

	// An empty transaction fails if the processor is consulted.
	payment, err := Pay(context.Background(), backend, ConfirmedTransaction(""), b, quote)
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if backend.intents != 0 {
		t.Fatalf("created %d payment intents, want none", backend.intents)
	}
	if payment.Amount != 0 || payment.CouponCode != "FREE" || payment.TransactionID != "coupon:FREE" {
		t.Fatalf("unexpected payment %+v", payment)
	}
	if backend.recorded == nil || backend.recorded.BookingID != "b2" {
		t.Fatalf("payment was not recorded: %+v", backend.recorded)
	}

	if _, err := Pay(context.Background(), &fakePayments{}, ConfirmedTransaction("tx"), b, Quote{}); err == nil {
		t.Fatal("Pay() with nothing owed and no coupon should fail")
	}
}
