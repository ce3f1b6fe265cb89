// ABOUTME: WhatsApp delivery through the Twilio Messages REST API
// ABOUTME: Form-encoded POST with basic auth; whatsapp: prefixes on both numbers
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrNoRecipient is returned when no destination number is configured.
var ErrNoRecipient = errors.New("no target WhatsApp number configured")

// Sender delivers a plain-text body to the configured recipient.
type Sender interface {
	Send(ctx context.Context, body string) (string, error)
}

type TwilioOptions struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	ToNumber   string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Twilio struct {
	opts       TwilioOptions
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

func NewTwilio(opts TwilioOptions) *Twilio {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Twilio{opts: opts, baseURL: baseURL, httpClient: httpClient, logger: logger}
}

type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Send queues body as a WhatsApp message and returns the message SID.
func (t *Twilio) Send(ctx context.Context, body string) (string, error) {
	to := strings.TrimSpace(t.opts.ToNumber)
	if to == "" {
		return "", ErrNoRecipient
	}

	form := url.Values{}
	form.Set("From", whatsappAddress(t.opts.FromNumber))
	form.Set("To", whatsappAddress(to))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.opts.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build message request: %w", err)
	}
	req.SetBasicAuth(t.opts.AccountSID, t.opts.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	t.logger.Info("sending whatsapp message", "to", whatsappAddress(to), "chars", len([]rune(body)))
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read message response: %w", err)
	}

	var out messageResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if out.Message != "" {
			return "", fmt.Errorf("twilio returned %d (code %d): %s", resp.StatusCode, out.Code, out.Message)
		}
		return "", fmt.Errorf("twilio returned %d", resp.StatusCode)
	}

	t.logger.Info("whatsapp message queued", "sid", out.SID, "status", out.Status)
	return out.SID, nil
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
