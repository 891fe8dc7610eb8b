// Package booking validates slot selections and prices them, applying coupon
// discounts, ahead of the backend booking and payment calls.
package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// DateLayout is the booking date format exchanged with the backend.
const DateLayout = "2006-01-02"

var (
	ErrNoSlots        = errors.New("select at least one slot")
	ErrUnknownSlot    = errors.New("slot is not offered by this court")
	ErrDuplicateSlot  = errors.New("slot selected more than once")
	ErrInvalidDate    = errors.New("invalid booking date")
	ErrDateInPast     = errors.New("booking date is in the past")
	ErrCouponInactive = errors.New("coupon is not active")
	ErrCouponExpired  = errors.New("coupon has expired")
)

// Selection is a visitor's choice of court, date and slots.
type Selection struct {
	Court sdk.Court
	Date  string
	Slots []string
}

// Validate checks the selection against the court's slot catalogue. The date
// must be today or later in now's location.
func (s Selection) Validate(now time.Time) error {
	if len(s.Slots) == 0 {
		return ErrNoSlots
	}
	date, err := time.ParseInLocation(DateLayout, s.Date, now.Location())
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidDate, s.Date, err)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return fmt.Errorf("%w: %s", ErrDateInPast, s.Date)
	}

	seen := make(map[string]struct{}, len(s.Slots))
	for _, slot := range s.Slots {
		if !slices.Contains(s.Court.Slots, slot) {
			return fmt.Errorf("%w: %s on %s", ErrUnknownSlot, slot, s.Court.Name)
		}
		if _, dup := seen[slot]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSlot, slot)
		}
		seen[slot] = struct{}{}
	}
	return nil
}

// Subtotal is the undiscounted price in minor units.
func (s Selection) Subtotal() int64 {
	return s.Court.PricePerSlot * int64(len(s.Slots))
}

// Request builds the backend booking request for email at price.
func (s Selection) Request(email string, price int64) sdk.CreateBookingInput {
	return sdk.CreateBookingInput{
		Email:     email,
		CourtID:   s.Court.ID,
		CourtName: s.Court.Name,
		Date:      s.Date,
		Slots:     slices.Clone(s.Slots),
		Price:     price,
	}
}

// Quote is a priced selection. All amounts are minor units.
type Quote struct {
	Subtotal int64
	Discount int64
	Total    int64
	Coupon   *sdk.Coupon
}

// CheckCoupon reports why coupon cannot be used at now, or nil.
func CheckCoupon(coupon *sdk.Coupon, now time.Time) error {
	if !coupon.Active {
		return fmt.Errorf("%w: %s", ErrCouponInactive, coupon.Code)
	}
	if coupon.ExpiresAt != nil && !now.Before(*coupon.ExpiresAt) {
		return fmt.Errorf("%w: %s", ErrCouponExpired, coupon.Code)
	}
	return nil
}

// Price quotes subtotal with an optional coupon. The discount is a percentage
// of the subtotal rounded half up to the minor unit.
func Price(subtotal int64, coupon *sdk.Coupon, now time.Time) (Quote, error) {
	quote := Quote{Subtotal: subtotal, Total: subtotal}
	if coupon == nil {
		return quote, nil
	}
	if err := CheckCoupon(coupon, now); err != nil {
		return Quote{}, err
	}
	percent := int64(min(max(coupon.DiscountPercent, 0), 100))
	quote.Discount = (subtotal*percent + 50) / 100
	quote.Total = subtotal - quote.Discount
	quote.Coupon = coupon
	return quote, nil
}

// CouponLookup finds coupons by code. *sdk.Client satisfies it.
type CouponLookup interface {
	FindCoupon(ctx context.Context, code string) (*sdk.Coupon, error)
}

// LookupCoupon finds code, ignoring case and surrounding space, and checks it
// is usable at now.
func LookupCoupon(ctx context.Context, lookup CouponLookup, code string, now time.Time) (*sdk.Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, fmt.Errorf("coupon code is empty")
	}
	coupon, err := lookup.FindCoupon(ctx, normalized)
	if err != nil {
		if errors.Is(err, sdk.ErrNotFound) {
			return nil, fmt.Errorf("coupon %s not found: %w", normalized, err)
		}
		return nil, err
	}
	if !strings.EqualFold(coupon.Code, normalized) {
		return nil, fmt.Errorf("coupon %s not found: %w", normalized, sdk.ErrNotFound)
	}
	if err := CheckCoupon(coupon, now); err != nil {
		return nil, err
	}
	return coupon, nil
}

// NormalizeCode is the canonical form coupon codes are stored and looked up in.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FormatAmount renders minor units as a decimal amount, e.g. 1250 -> "12.50".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
