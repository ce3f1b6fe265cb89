// ABOUTME: Zoho CRM REST client with refresh-token OAuth and incremental fetch
// ABOUTME: Pages through a module, honors If-Modified-Since and retries 429/5xx
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/models"
	"golang.org/x/oauth2"
)

// ifModifiedSinceLayout is the timestamp form Zoho accepts for If-Modified-Since.
const ifModifiedSinceLayout = "2006-01-02T15:04:05-07:00"

// FetchError reports a non-success HTTP status for a module fetch.
type FetchError struct {
	Module models.Module
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("failed to fetch %s: status %d", e.Module, e.Status)
	}
	return fmt.Sprintf("failed to fetch %s: status %d: %s", e.Module, e.Status, e.Body)
}

type ClientOptions struct {
	APIURL       string
	AccountsURL  string
	ClientID     string
	ClientSecret string
	RefreshToken string
	// TokenSource replaces the refresh-token flow when set.
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	PerPage     int
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *log.Logger
}

type Client struct {
	apiURL     string
	tokens     oauth2.TokenSource // overrides the refresh-token flow when set
	oauth      *oauth2.Config
	httpClient *http.Client
	perPage    int
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *log.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

func NewClient(opts ClientOptions) *Client {
	apiURL := strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
	if apiURL == "" {
		apiURL = "https://www.zohoapis.in"
	}
	accountsURL := strings.TrimRight(strings.TrimSpace(opts.AccountsURL), "/")
	if accountsURL == "" {
		accountsURL = "https://accounts.zoho.in"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 200 {
		perPage = 200
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  accountsURL + "/oauth/v2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &Client{
		apiURL:     apiURL,
		tokens:     opts.TokenSource,
		oauth:      oauthCfg,
		token:      &oauth2.Token{RefreshToken: opts.RefreshToken},
		httpClient: httpClient,
		perPage:    perPage,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		logger:     logger,
	}
}

// accessToken returns the cached token while valid, otherwise refreshes it
// under ctx so callers' deadlines bound the token request.
func (c *Client) accessToken(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.tokens != nil {
		return c.tokens.Token()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.Valid() {
		return c.token, nil
	}
	reqCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.TokenSource(reqCtx, c.token).Token()
	if err != nil {
		return nil, err
	}
	c.token = tok
	return tok, nil
}

// Authenticate obtains (or reuses) an access token.
func (c *Client) Authenticate(ctx context.Context) error {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return errors.New("failed to obtain access token: empty token")
	}
	c.logger.Info("access token acquired")
	return nil
}

type pageResponse struct {
	Data json.RawMessage `json:"data"`
	Info struct {
		MoreRecords bool `json:"more_records"`
	} `json:"info"`
}

// Fetch returns every record of module created or modified after since. A
// nil since fetches the full history. 204 and 304 mean no changes.
func (c *Client) Fetch(ctx context.Context, module models.Module, since *time.Time) ([]Record, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	sinceLabel := "beginning of time"
	if since != nil {
		sinceLabel = since.UTC().Format(time.RFC3339)
	}
	c.logger.Info("fetching module", "module", module, "since", sinceLabel)

	var all []Record
	for page := 1; ; page++ {
		body, status, err := c.getPage(ctx, module, page, since, tok.AccessToken)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNoContent || status == http.StatusNotModified {
			break
		}

		var resp pageResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode %s page %d: %w", module, page, err)
		}

		var records []Record
		if len(resp.Data) > 0 && string(resp.Data) != "null" {
			records, err = DecodeRecords(resp.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s page %d: %w", module, page, err)
			}
		}
		all = append(all, records...)

		if !resp.Info.MoreRecords || len(records) == 0 {
			break
		}
	}

	c.logger.Info("fetched module", "module", module, "count", len(all))
	return all, nil
}

func (c *Client) getPage(ctx context.Context, module models.Module, page int, since *time.Time, token string) ([]byte, int, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(c.perPage))
	endpoint := c.apiURL + "/crm/v2/" + url.PathEscape(string(module)) + "?" + query.Encode()

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
		req.Header.Set("Accept", "application/json")
		if since != nil {
			req.Header.Set("If-Modified-Since", since.UTC().Format(ifModifiedSinceLayout))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return nil, 0, waitErr
				}
				continue
			}
			return nil, 0, fmt.Errorf("failed to fetch %s: %w", module, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, 0, fmt.Errorf("failed to read %s response: %w", module, readErr)
		}

		switch {
		case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified:
			return nil, resp.StatusCode, nil
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return body, resp.StatusCode, nil
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			c.logger.Warn("retrying fetch", "module", module, "status", resp.StatusCode, "attempt", attempt+1)
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return nil, 0, waitErr
			}
			continue
		}

		return nil, resp.StatusCode, &FetchError{Module: module, Status: resp.StatusCode, Body: truncateBody(body)}
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		return s[:256]
	}
	return s
}
