package sdk

import (
	"context"
	"fmt"
	"net/http"
)

// ListCoupons returns all coupons. The list is public so visitors can see offers.
func (c *Client) ListCoupons(ctx context.Context) ([]Coupon, error) {
	var coupons []Coupon
	if err := c.do(ctx, &Request{Method: http.MethodGet, Path: "/coupons"}, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

// FindCoupon looks a coupon up by its code. Unknown codes match ErrNotFound.
func (c *Client) FindCoupon(ctx context.Context, code string) (*Coupon, error) {
	var coupon Coupon
	if err := c.do(ctx, &Request{
		Method:       http.MethodGet,
		Path:         "/coupons/by-code/" + escape(code),
		RequiresAuth: true,
	}, &coupon); err != nil {
		return nil, err
	}
	return &coupon, nil
}

// CreateCoupon adds a coupon.
func (c *Client) CreateCoupon(ctx context.Context, input CouponInput) (*Coupon, error) {
	if err := validateCouponInput(input); err != nil {
		return nil, err
	}
	var coupon Coupon
	if err := c.do(ctx, &Request{
		Method:       http.MethodPost,
		Path:         "/coupons",
		Body:         input,
		RequiresAuth: true,
	}, &coupon); err != nil {
		return nil, err
	}
	return &coupon, nil
}

// UpdateCoupon replaces a coupon's attributes.
func (c *Client) UpdateCoupon(ctx context.Context, id string, input CouponInput) (*Coupon, error) {
	if err := validateCouponInput(input); err != nil {
		return nil, err
	}
	var coupon Coupon
	if err := c.do(ctx, &Request{
		Method:       http.MethodPatch,
		Path:         "/coupons/" + escape(id),
		Body:         input,
		RequiresAuth: true,
	}, &coupon); err != nil {
		return nil, err
	}
	return &coupon, nil
}

// DeleteCoupon removes a coupon.
func (c *Client) DeleteCoupon(ctx context.Context, id string) error {
	return c.do(ctx, &Request{
		Method:       http.MethodDelete,
		Path:         "/coupons/" + escape(id),
		RequiresAuth: true,
	}, nil)
}

func validateCouponInput(input CouponInput) error {
	if input.Code == "" {
		return fmt.Errorf("coupon code is required")
	}
	if input.DiscountPercent <= 0 || input.DiscountPercent > 100 {
		return fmt.Errorf("discount must be between 1 and 100 percent, got %d", input.DiscountPercent)
	}
	return nil
}
