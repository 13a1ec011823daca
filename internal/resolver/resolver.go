package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/edustack/edustack/internal/core"
)

// NotFoundError reports a lookup that reached the backend but matched no
// school, or failed outright. Domain is the domain that was attempted, kept
// for display on the failure screen.
type NotFoundError struct {
	Message string
	Domain  string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ValidationError reports an input rejected before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type resolveRequest struct {
	UserEmail string `json:"userEmail"`
}

type resolveErrorResponse struct {
	Message                 string `json:"message"`
	OriginalDomainAttempted string `json:"original_domain_attempted"`
}

// Resolve maps an authenticated user's email to their school's configuration.
// One request, no retry, no caching; the backend is the source of truth for
// the license status it returns.
func (c *Client) Resolve(ctx context.Context, userEmail string) (*core.TenantConfig, error) {
	domain, err := emailDomain(userEmail)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(resolveRequest{UserEmail: userEmail})
	if err != nil {
		return nil, fmt.Errorf("failed to encode resolve request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/schools/resolve-info", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build resolve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NotFoundError{
			Message: "Network error or unexpected issue during school lookup.",
			Domain:  domain,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp resolveErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)

		message := errResp.Message
		if message == "" {
			message = "School not found or API error."
		}
		attempted := errResp.OriginalDomainAttempted
		if attempted == "" {
			attempted = domain
		}
		return nil, &NotFoundError{Message: message, Domain: attempted}
	}

	var cfg core.TenantConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, &NotFoundError{
			Message: "Invalid response from school lookup.",
			Domain:  domain,
		}
	}

	if cfg.Domain == "" {
		cfg.Domain = domain
	}
	return &cfg, nil
}

// emailDomain rejects syntactically invalid emails before any network I/O.
func emailDomain(email string) (string, error) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", &ValidationError{Message: fmt.Sprintf("invalid email address: %q", email)}
	}
	return email[at+1:], nil
}
