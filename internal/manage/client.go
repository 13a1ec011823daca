package manage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/edustack/edustack/internal/core"
)

// TokenSource yields the bearer token of the current authenticated session.
type TokenSource interface {
	SessionToken(ctx context.Context) (string, error)
}

// APIError carries the server-provided message for inline display in the
// manage console.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is the manage-console API client. Every request goes out with the
// session's bearer token; when no session exists the header is omitted and
// the server decides.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &bearerTransport{tokens: tokens, base: http.DefaultTransport},
		},
	}
}

type bearerTransport struct {
	tokens TokenSource
	base   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens != nil {
		if token, err := t.tokens.SessionToken(req.Context()); err == nil && token != "" {
			// RoundTrippers must not mutate the caller's request.
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			return t.base.RoundTrip(clone)
		}
	}
	return t.base.RoundTrip(req)
}

type ListFilters struct {
	Name   string
	Status string
}

func (c *Client) ListClients(ctx context.Context, filters ListFilters) ([]*core.Client, error) {
	q := url.Values{}
	if filters.Name != "" {
		q.Set("name", filters.Name)
	}
	if filters.Status != "" {
		q.Set("status", filters.Status)
	}

	path := "/clients"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var clients []*core.Client
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (c *Client) GetClient(ctx context.Context, id string) (*core.Client, error) {
	var client core.Client
	if err := c.doJSON(ctx, http.MethodGet, "/clients/"+id, nil, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

type AddClientPayload struct {
	Name           string
	Desc           string
	Domain         string
	AdminName      string
	LicenseDate    string // YYYY-MM-DD
	OwnerName      string
	SupportContact string
	LogoFilename   string
	Logo           io.Reader
}

type AddClientResponse struct {
	Message         string       `json:"message"`
	Client          *core.Client `json:"client"`
	AdminPassword   string       `json:"adminPassword,omitempty"`
	LibraryPassword string       `json:"libPassword,omitempty"`
}

func (c *Client) AddClient(ctx context.Context, payload AddClientPayload) (*AddClientResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"name":         payload.Name,
		"desc":         payload.Desc,
		"domain":       payload.Domain,
		"admin_name":   payload.AdminName,
		"license_date": payload.LicenseDate,
		"byName":       payload.OwnerName,
		"byContact":    payload.SupportContact,
	}
	for field, value := range fields {
		if field == "desc" && value == "" {
			continue
		}
		if err := w.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", field, err)
		}
	}

	if payload.Logo != nil {
		part, err := w.CreateFormFile("logoImage", payload.LogoFilename)
		if err != nil {
			return nil, fmt.Errorf("failed to attach logo: %w", err)
		}
		if _, err := io.Copy(part, payload.Logo); err != nil {
			return nil, fmt.Errorf("failed to attach logo: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/clients", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result AddClientResponse
	if err := c.send(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateClientDetails(ctx context.Context, id, name, desc string) (*core.Client, error) {
	body := map[string]string{"name": name, "desc": desc}
	var client core.Client
	if err := c.doJSON(ctx, http.MethodPut, "/clients/"+id, body, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *Client) UpdateClientLicense(ctx context.Context, id, licenseDate string) (*core.Client, error) {
	body := map[string]string{"license_date": licenseDate}
	var client core.Client
	if err := c.doJSON(ctx, http.MethodPut, "/clients/"+id+"/license", body, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *Client) AddClientNote(ctx context.Context, id, note string) (*core.Client, error) {
	body := map[string]string{"note": note}
	var client core.Client
	if err := c.doJSON(ctx, http.MethodPost, "/clients/"+id+"/notes", body, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, dest)
}

func (c *Client) send(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{
			Message: "Network error: No response received from server. Check server status and network connection.",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)

		message := errBody.Message
		if message == "" {
			message = errBody.Error
		}
		if message == "" {
			message = "An unknown server error occurred."
		}
		return &APIError{Message: message, StatusCode: resp.StatusCode}
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
