package sdk

import (
	"context"
	"fmt"
	"net/http"
)

// ListCourts returns every court. The catalogue is public.
func (c *Client) ListCourts(ctx context.Context) ([]Court, error) {
	var courts []Court
	if err := c.do(ctx, &Request{Method: http.MethodGet, Path: "/courts"}, &courts); err != nil {
		return nil, err
	}
	return courts, nil
}

// GetCourt fetches one court by ID.
func (c *Client) GetCourt(ctx context.Context, id string) (*Court, error) {
	var court Court
	if err := c.do(ctx, &Request{Method: http.MethodGet, Path: "/courts/" + escape(id)}, &court); err != nil {
		return nil, err
	}
	return &court, nil
}

// CreateCourt adds a court.
func (c *Client) CreateCourt(ctx context.Context, input CourtInput) (*Court, error) {
	if err := validateCourtInput(input); err != nil {
		return nil, err
	}
	var court Court
	if err := c.do(ctx, &Request{
		Method:       http.MethodPost,
		Path:         "/courts",
		Body:         input,
		RequiresAuth: true,
	}, &court); err != nil {
		return nil, err
	}
	return &court, nil
}

// UpdateCourt replaces a court's attributes.
func (c *Client) UpdateCourt(ctx context.Context, id string, input CourtInput) (*Court, error) {
	if err := validateCourtInput(input); err != nil {
		return nil, err
	}
	var court Court
	if err := c.do(ctx, &Request{
		Method:       http.MethodPatch,
		Path:         "/courts/" + escape(id),
		Body:         input,
		RequiresAuth: true,
	}, &court); err != nil {
		return nil, err
	}
	return &court, nil
}

// DeleteCourt removes a court.
func (c *Client) DeleteCourt(ctx context.Context, id string) error {
	return c.do(ctx, &Request{
		Method:       http.MethodDelete,
		Path:         "/courts/" + escape(id),
		RequiresAuth: true,
	}, nil)
}

func validateCourtInput(input CourtInput) error {
	if input.Name == "" {
		return fmt.Errorf("court name is required")
	}
	if input.PricePerSlot < 0 {
		return fmt.Errorf("price per slot must not be negative")
	}
	if len(input.Slots) == 0 {
		return fmt.Errorf("at least one slot is required")
	}
	return nil
}
