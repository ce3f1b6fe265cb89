// ABOUTME: Tests for the injectable database host resolver
// ABOUTME: Uses an httptest DoH endpoint and a stubbed system resolver
package db

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemStub(addrs ...string) func(context.Context, string) ([]string, error) {
	return func(context.Context, string) ([]string, error) {
		if len(addrs) == 0 {
			return nil, errors.New("no such host")
		}
		return addrs, nil
	}
}

func TestNewResolverNilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewResolver(nil, "", nil))
	assert.NotNil(t, NewResolver(map[string]string{"db.example.co": "10.0.0.1"}, "", nil))
}

func TestResolverOverride(t *testing.T) {
	r := &Resolver{Overrides: map[string]string{"db.example.co": "10.0.0.1"}, System: systemStub("192.0.2.1")}

	addrs, err := r.Lookup(context.Background(), "db.example.co")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, addrs)

	addrs, err = r.Lookup(context.Background(), "other.example.co")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, addrs)
}

func TestResolverDoH(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "db.example.co", r.URL.Query().Get("name"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Status":0,"Answer":[{"type":5,"data":"alias.example.co."},{"type":1,"data":"203.0.113.7"}]}`))
	}))
	defer server.Close()

	r := &Resolver{DoHURL: server.URL, DoHHosts: []string{"db.example.co"}, HTTPClient: server.Client(), System: systemStub("192.0.2.1")}

	addrs, err := r.Lookup(context.Background(), "db.example.co")
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.7"}, addrs)

	addrs, err = r.Lookup(context.Background(), "unlisted.example.co")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, addrs, "hosts outside DoHHosts use the system resolver")
}

func TestResolverDoHFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var logged bool
	r := &Resolver{
		DoHURL:     server.URL,
		HTTPClient: server.Client(),
		System:     systemStub("192.0.2.1"),
		Logf:       func(string, ...any) { logged = true },
	}

	addrs, err := r.Lookup(context.Background(), "db.example.co")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, addrs)
	assert.True(t, logged)
}
