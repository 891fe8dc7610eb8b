package sdk

import (
	"context"
	"fmt"
	"net/http"
)

// ListAnnouncements returns club announcements, newest first as ordered by the backend.
func (c *Client) ListAnnouncements(ctx context.Context) ([]Announcement, error) {
	var announcements []Announcement
	if err := c.do(ctx, &Request{Method: http.MethodGet, Path: "/announcements"}, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

// CreateAnnouncement publishes an announcement.
func (c *Client) CreateAnnouncement(ctx context.Context, input AnnouncementInput) (*Announcement, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("announcement title is required")
	}
	var announcement Announcement
	if err := c.do(ctx, &Request{
		Method:       http.MethodPost,
		Path:         "/announcements",
		Body:         input,
		RequiresAuth: true,
	}, &announcement); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// DeleteAnnouncement removes an announcement.
func (c *Client) DeleteAnnouncement(ctx context.Context, id string) error {
	return c.do(ctx, &Request{
		Method:       http.MethodDelete,
		Path:         "/announcements/" + escape(id),
		RequiresAuth: true,
	}, nil)
}
