package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GetRole returns the role string the backend holds for identifier.
// An identifier the backend has never seen yields "" with no error.
func (c *Client) GetRole(ctx context.Context, identifier string) (string, error) {
	var payload struct {
		Role string `json:"role"`
	}
	err := c.do(ctx, &Request{
		Method:       http.MethodGet,
		Path:         "/users/" + escape(identifier) + "/role",
		RequiresAuth: true,
	}, &payload)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return payload.Role, nil
}

// GetUser fetches a single user record. Missing users return an error matching ErrNotFound.
func (c *Client) GetUser(ctx context.Context, email string) (*User, error) {
	var user User
	if err := c.do(ctx, &Request{
		Method:       http.MethodGet,
		Path:         "/users/" + escape(email),
		RequiresAuth: true,
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates the backend user record with the default role.
func (c *Client) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	if input.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	now := time.Now().UTC()
	if input.DefaultRole == "" {
		input.DefaultRole = RoleUser
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = now
	}
	if input.LastLoginAt.IsZero() {
		input.LastLoginAt = now
	}

	var user User
	if err := c.do(ctx, &Request{
		Method:       http.MethodPost,
		Path:         "/users",
		Body:         input,
		RequiresAuth: true,
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RegisterIfNew creates the user record when the backend does not know email yet.
// It reports whether a record was created.
func (c *Client) RegisterIfNew(ctx context.Context, email, name string) (bool, error) {
	_, err := c.GetUser(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("lookup user %s: %w", email, err)
	}
	if _, err := c.CreateUser(ctx, CreateUserInput{Email: email, Name: name}); err != nil {
		return false, fmt.Errorf("create user %s: %w", email, err)
	}
	return true, nil
}

// ListUsers lists users, optionally narrowed by a backend-side search term.
func (c *Client) ListUsers(ctx context.Context, search string) ([]User, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	var users []User
	if err := c.do(ctx, &Request{
		Method:       http.MethodGet,
		Path:         "/users",
		Query:        query,
		RequiresAuth: true,
	}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetRole changes a user's role and notifies OnRoleChanged listeners on success.
func (c *Client) SetRole(ctx context.Context, email, role string) (*User, error) {
	switch role {
	case RoleUser, RoleMember, RoleAdmin:
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	var user User
	if err := c.do(ctx, &Request{
		Method:       http.MethodPatch,
		Path:         "/users/" + escape(email) + "/role",
		Body:         map[string]string{"role": role},
		RequiresAuth: true,
	}, &user); err != nil {
		return nil, err
	}
	c.emitRoleChanged(email)
	return &user, nil
}

// RemoveMember ends a user's membership; the backend returns them to the user
// role. OnRoleChanged listeners are notified on success.
func (c *Client) RemoveMember(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	var user User
	if err := c.do(ctx, &Request{
		Method:       http.MethodDelete,
		Path:         "/users/" + escape(email) + "/membership",
		RequiresAuth: true,
	}, &user); err != nil {
		return nil, err
	}
	c.emitRoleChanged(email)
	return &user, nil
}
