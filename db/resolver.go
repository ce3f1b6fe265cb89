// ABOUTME: Injectable host lookup for the Postgres connection
// ABOUTME: Static overrides first, then optional DNS-over-HTTPS, then the system resolver
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// DefaultDoHURL is Google's JSON DNS endpoint.
const DefaultDoHURL = "https://dns.google/resolve"

// dnsTypeA is the record type for IPv4 answers.
const dnsTypeA = 1

// Resolver resolves database hosts when the system resolver cannot be
// trusted. The zero value behaves like the system resolver.
type Resolver struct {
	// Overrides maps a host name to a fixed address.
	Overrides map[string]string
	// DoHURL enables DNS-over-HTTPS lookups when non-empty.
	DoHURL string
	// DoHHosts limits DoH to these hosts. Empty means every host.
	DoHHosts []string

	HTTPClient *http.Client
	System     func(ctx context.Context, host string) ([]string, error)
	Logf       func(format string, args ...any)
}

// NewResolver returns nil when neither overrides nor DoH are configured so
// callers can pass the result straight to OpenPostgres.
func NewResolver(overrides map[string]string, dohURL string, dohHosts []string) *Resolver {
	if len(overrides) == 0 && dohURL == "" {
		return nil
	}
	return &Resolver{Overrides: overrides, DoHURL: dohURL, DoHHosts: dohHosts}
}

// Lookup matches pgconn.LookupFunc.
func (r *Resolver) Lookup(ctx context.Context, host string) ([]string, error) {
	if ip, ok := r.Overrides[host]; ok && ip != "" {
		return []string{ip}, nil
	}

	if net.ParseIP(host) == nil && r.useDoH(host) {
		addrs, err := r.lookupDoH(ctx, host)
		if err == nil && len(addrs) > 0 {
			return addrs, nil
		}
		if r.Logf != nil {
			r.Logf("DoH lookup for %s failed, falling back to system resolver: %v", host, err)
		}
	}

	if r.System != nil {
		return r.System(ctx, host)
	}
	return net.DefaultResolver.LookupHost(ctx, host)
}

func (r *Resolver) useDoH(host string) bool {
	if r.DoHURL == "" {
		return false
	}
	return len(r.DoHHosts) == 0 || slices.Contains(r.DoHHosts, host)
}

type dohResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Type int    `json:"type"`
		Data string `json:"data"`
	} `json:"Answer"`
}

func (r *Resolver) lookupDoH(ctx context.Context, host string) ([]string, error) {
	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	endpoint := r.DoHURL + "?" + url.Values{"name": {host}, "type": {"A"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build DoH request: %w", err)
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query DoH: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH returned status %d", resp.StatusCode)
	}

	var parsed dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode DoH response: %w", err)
	}

	var addrs []string
	for _, a := range parsed.Answer {
		if a.Type == dnsTypeA && net.ParseIP(strings.TrimSpace(a.Data)) != nil {
			addrs = append(addrs, strings.TrimSpace(a.Data))
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no A records for %s", host)
	}
	return addrs, nil
}
