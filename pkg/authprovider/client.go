package authprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/edustack/edustack/internal/config"
)

// Client talks to the hosted account service with a server API key. It is
// only used by the provisioning backend; end users authenticate against the
// provider directly.
type Client struct {
	cfg        config.AuthConfig
	httpClient *http.Client
}

func NewClient(cfg config.AuthConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
	}
}

type User struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

type createUserRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Labels   []string `json:"labels,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, email, password, name string, labels []string) (*User, error) {
	body, err := json.Marshal(createUserRequest{
		Email:    email,
		Password: password,
		Name:     name,
		Labels:   labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}

	var user User
	if err := c.do(ctx, http.MethodPost, "/v1/users", bytes.NewReader(body), &user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	return &user, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+userID, nil, &user); err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/users/"+userID, nil, nil); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", userID, err)
	}
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/sessions/"+sessionID, nil, nil); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, dest interface{}) error {
	if c.cfg.URL == "" || c.cfg.ProjectID == "" {
		return fmt.Errorf("auth provider is not configured")
	}

	url := strings.TrimRight(c.cfg.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project-ID", c.cfg.ProjectID)
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Message != "" {
			return fmt.Errorf("%s (status %d)", errBody.Message, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
