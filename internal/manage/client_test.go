package manage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/edustack/internal/core"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) SessionToken(ctx context.Context) (string, error) {
	return s.token, s.err
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]*core.Client{})
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "session-token"})
	_, err := client.ListClients(context.Background(), ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", gotAuth)
}

type recordingTransport struct {
	auth string
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.auth = req.Header.Get("Authorization")
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       http.NoBody,
		Header:     http.Header{},
	}, nil
}

func TestBearerTransportLeavesCallerRequestUntouched(t *testing.T) {
	rec := &recordingTransport{}
	transport := &bearerTransport{tokens: &staticTokens{token: "session-token"}, base: rec}

	req, err := http.NewRequest(http.MethodGet, "http://example.test/clients", nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer session-token", rec.auth)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestHeaderOmittedWithoutSession(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]*core.Client{})
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{err: errors.New("no session")})
	_, err := client.ListClients(context.Background(), ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestListClientsSendsFilters(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]*core.Client{{ID: "c-1"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	clients, err := client.ListClients(context.Background(), ListFilters{Name: "green", Status: "active"})
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Contains(t, gotQuery, "name=green")
	assert.Contains(t, gotQuery, "status=active")
}

func TestAddClientPostsMultipartFields(t *testing.T) {
	var gotFields map[string]string
	var gotLogo bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		_, _, err := r.FormFile("logoImage")
		gotLogo = err == nil

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(AddClientResponse{
			Message:       "Client created successfully",
			Client:        &core.Client{ID: "c-1"},
			AdminPassword: "tmp_admin",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	resp, err := client.AddClient(context.Background(), AddClientPayload{
		Name:           "Greenwood High",
		Domain:         "greenwood",
		AdminName:      "principal",
		LicenseDate:    "2030-06-30",
		OwnerName:      "Manager",
		SupportContact: "+1-555-0100",
		LogoFilename:   "logo.png",
		Logo:           strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Greenwood High", gotFields["name"])
	assert.Equal(t, "greenwood", gotFields["domain"])
	assert.Equal(t, "principal", gotFields["admin_name"])
	assert.Equal(t, "2030-06-30", gotFields["license_date"])
	assert.Equal(t, "Manager", gotFields["byName"])
	assert.Equal(t, "+1-555-0100", gotFields["byContact"])
	// Empty desc is skipped entirely rather than sent blank.
	_, sent := gotFields["desc"]
	assert.False(t, sent)
	assert.True(t, gotLogo)
	assert.Equal(t, "tmp_admin", resp.AdminPassword)
}

func TestServerErrorMessageSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "You are not authorized to manage clients"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.GetClient(context.Background(), "c-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "You are not authorized to manage clients", apiErr.Message)
}

func TestUnknownServerErrorFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.GetClient(context.Background(), "c-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "An unknown server error occurred.", apiErr.Message)
}

func TestNetworkErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.GetClient(context.Background(), "c-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "No response received from server")
	assert.Zero(t, apiErr.StatusCode)
}

func TestRenewLicenseSendsDate(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(&core.Client{ID: "c-1", Status: core.ClientActive})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	renewed, err := client.UpdateClientLicense(context.Background(), "c-1", "2030-06-30")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"license_date": "2030-06-30"}, gotBody)
	assert.Equal(t, core.ClientActive, renewed.Status)
}
