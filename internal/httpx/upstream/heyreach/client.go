package heyreach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.heyreach.io"
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultPoolSize    = 20

	accountPageLimit = 100
)

// Client is a HeyReach public API client
type Client struct {
	baseURL     string
	apiKey      string
	maxAttempts int
	backoffBase time.Duration
	httpClient  *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxAttempts bounds how many times one request may be sent
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the first retry delay
func WithBackoffBase(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// New creates a new HeyReach API client
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        defaultPoolSize,
				MaxIdleConnsPerHost: defaultPoolSize,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error response from the HeyReach API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("heyreach API error (status %d): %s", e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// LinkedInAccount is one sending account registered with HeyReach
type LinkedInAccount struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"emailAddress"`
}

// FullName joins the account's name parts, skipping empty ones
func (a LinkedInAccount) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type accountPage struct {
	Items []LinkedInAccount `json:"items"`
	Data  []LinkedInAccount `json:"data"`
}

// GetLinkedInAccounts pages through all LinkedIn accounts on the key
func (c *Client) GetLinkedInAccounts(ctx context.Context) ([]LinkedInAccount, error) {
	var accounts []LinkedInAccount
	for offset := 0; ; offset += accountPageLimit {
		in := map[string]int{"offset": offset, "limit": accountPageLimit}

		var page accountPage
		if err := c.post(ctx, "/api/public/li_account/GetAll", in, &page); err != nil {
			return nil, err
		}

		items := page.Items
		if len(items) == 0 {
			items = page.Data
		}
		accounts = append(accounts, items...)
		if len(items) < accountPageLimit {
			return accounts, nil
		}
	}
}

// Ping verifies the API key and upstream reachability with a minimal
// account listing. No retries; callers bound the wait through ctx.
func (c *Client) Ping(ctx context.Context) error {
	payload, err := json.Marshal(map[string]int{"offset": 0, "limit": 1})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.doOnce(ctx, "/api/public/li_account/GetAll", payload, nil)
}

// GetOverallStatsInput scopes a stats query to accounts and a date range
type GetOverallStatsInput struct {
	AccountIDs  []int64
	CampaignIDs []int64
	StartDate   time.Time
	EndDate     time.Time
}

// GetOverallStats fetches aggregate outreach counters for the window.
// The API answers either with a pre-summed overallStats object or with
// a byDayStats map; the per-day form is summed here so callers always
// see window totals.
func (c *Client) GetOverallStats(ctx context.Context, in GetOverallStatsInput) (*OverallStats, error) {
	req := map[string]any{
		"accountIds":  in.AccountIDs,
		"campaignIds": in.CampaignIDs,
		"startDate":   in.StartDate.UTC().Format("2006-01-02T15:04:05Z"),
		"endDate":     in.EndDate.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if in.CampaignIDs == nil {
		req["campaignIds"] = []int64{}
	}

	var out statsResponse
	if err := c.post(ctx, "/api/public/stats/GetOverallStats", req, &out); err != nil {
		return nil, err
	}

	return out.stats(), nil
}

// post sends one JSON request, retrying transient failures with
// exponential backoff. HTTP 429 and 5xx answers and transport timeouts
// count as transient; everything else fails immediately.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt); err != nil {
				return err
			}
		}

		lastErr = c.doOnce(ctx, path, payload, out)
		if lastErr == nil || !transient(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("request to %s failed after %d attempts: %w", path, c.maxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// sleep waits out the backoff for the given attempt, honoring ctx
func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoffBase * time.Duration(1<<(attempt-1))
	if half := int64(c.backoffBase) / 2; half > 0 {
		delay += time.Duration(rand.Int63n(half))
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

func transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
