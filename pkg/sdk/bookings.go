package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// CreateBooking submits a booking request. It starts in BookingPending.
// When ID is empty a random UUID is generated.
func (c *Client) CreateBooking(ctx context.Context, input CreateBookingInput) (*Booking, error) {
	if input.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.CourtID == "" {
		return nil, fmt.Errorf("court ID is required")
	}
	if len(input.Slots) == 0 {
		return nil, fmt.Errorf("at least one slot is required")
	}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}

	var booking Booking
	if err := c.do(ctx, &Request{
		Method:       http.MethodPost,
		Path:         "/bookings",
		Body:         input,
		RequiresAuth: true,
	}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBookings lists bookings matching q.
func (c *Client) ListBookings(ctx context.Context, q BookingQuery) ([]Booking, error) {
	query := url.Values{}
	if q.Email != "" {
		query.Set("email", q.Email)
	}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	var bookings []Booking
	if err := c.do(ctx, &Request{
		Method:       http.MethodGet,
		Path:         "/bookings",
		Query:        query,
		RequiresAuth: true,
	}, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ApproveBooking approves a pending booking. The backend promotes the booking's
// owner to member on approval, so role listeners are notified for that owner.
func (c *Client) ApproveBooking(ctx context.Context, id string) (*Booking, error) {
	booking, err := c.setBookingStatus(ctx, id, BookingApproved)
	if err != nil {
		return nil, err
	}
	if booking.Email != "" {
		c.emitRoleChanged(booking.Email)
	}
	return booking, nil
}

// RejectBooking rejects a pending booking.
func (c *Client) RejectBooking(ctx context.Context, id string) (*Booking, error) {
	return c.setBookingStatus(ctx, id, BookingRejected)
}

// CancelBooking withdraws a booking that has not been paid.
func (c *Client) CancelBooking(ctx context.Context, id string) error {
	return c.do(ctx, &Request{
		Method:       http.MethodDelete,
		Path:         "/bookings/" + escape(id),
		RequiresAuth: true,
	}, nil)
}

func (c *Client) setBookingStatus(ctx context.Context, id string, status BookingStatus) (*Booking, error) {
	var booking Booking
	if err := c.do(ctx, &Request{
		Method:       http.MethodPatch,
		Path:         "/bookings/" + escape(id) + "/status",
		Body:         map[string]BookingStatus{"status": status},
		RequiresAuth: true,
	}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}
