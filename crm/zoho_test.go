// ABOUTME: Tests for the Zoho CRM client against an httptest server
// ABOUTME: Covers token refresh, pagination, 304 handling, retries and errors
package crm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keenanpereira/pulse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "refresh", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600,"token_type":"Bearer","api_domain":"https://www.zohoapis.in"}`))
	}
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(ClientOptions{
		APIURL:       server.URL,
		AccountsURL:  server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh",
		HTTPClient:   server.Client(),
		MaxRetries:   2,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})
}

func TestAuthenticate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", tokenHandler(t))
	server := httptest.NewServer(mux)
	defer server.Close()

	require.NoError(t, newTestClient(server).Authenticate(context.Background()))
}

func TestAuthenticateRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_code"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	assert.Error(t, newTestClient(server).Authenticate(context.Background()))
}

func TestAuthenticateHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := newTestClient(server).Authenticate(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAccessTokenIsReused(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	token := tokenHandler(t)
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		token(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server)
	require.NoError(t, client.Authenticate(context.Background()))
	require.NoError(t, client.Authenticate(context.Background()))
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestFetchPaginates(t *testing.T) {
	since := time.Date(2026, 3, 1, 2, 30, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", tokenHandler(t))
	mux.HandleFunc("/crm/v2/Leads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Zoho-oauthtoken tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-03-01T02:30:00+00:00", r.Header.Get("If-Modified-Since"))
		assert.Equal(t, "200", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`{"data":[{"id":"1","Owner":{"name":"Asha"}},{"id":"2"}],"info":{"more_records":true}}`))
		case "2":
			_, _ = w.Write([]byte(`{"data":[{"id":"3","Annual_Revenue":12000}],"info":{"more_records":false}}`))
		default:
			t.Errorf("unexpected page %s", r.URL.Query().Get("page"))
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	records, err := newTestClient(server).Fetch(context.Background(), models.ModuleLeads, &since)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[0].ID())
	assert.Equal(t, "Asha", records[0].Owner(models.OwnerUnassigned))
	assert.Equal(t, 12000.0, records[2].Number("Annual_Revenue"))
}

func TestFetchNotModified(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotModified} {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/v2/token", tokenHandler(t))
		mux.HandleFunc("/crm/v2/Deals", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		server := httptest.NewServer(mux)

		records, err := newTestClient(server).Fetch(context.Background(), models.ModuleDeals, nil)
		require.NoError(t, err, "status %d", status)
		assert.Empty(t, records)
		server.Close()
	}
}

func TestFetchOmitsIfModifiedSinceOnFirstSync(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", tokenHandler(t))
	mux.HandleFunc("/crm/v2/Accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("If-Modified-Since"))
		_, _ = w.Write([]byte(`{"data":[],"info":{"more_records":false}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	records, err := newTestClient(server).Fetch(context.Background(), models.ModuleAccounts, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", tokenHandler(t))
	mux.HandleFunc("/crm/v2/Contacts", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"c1"}],"info":{"more_records":false}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	records, err := newTestClient(server).Fetch(context.Background(), models.ModuleContacts, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", tokenHandler(t))
	mux.HandleFunc("/crm/v2/Deals", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_MODULE"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newTestClient(server).Fetch(context.Background(), models.ModuleDeals, nil)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.ModuleDeals, fetchErr.Module)
	assert.Equal(t, http.StatusBadRequest, fetchErr.Status)
	assert.Contains(t, fetchErr.Error(), "INVALID_MODULE")
}

func TestRetryDelay(t *testing.T) {
	c := &Client{baseDelay: 100 * time.Millisecond, maxDelay: time.Second}

	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, ""))
	assert.Equal(t, 400*time.Millisecond, c.retryDelay(3, ""))
	assert.Equal(t, time.Second, c.retryDelay(10, ""))
	assert.Equal(t, time.Second, c.retryDelay(1, "30"))
}
