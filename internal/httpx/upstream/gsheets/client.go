package gsheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/daniel/reach-sync/internal/domain/sheet/entity"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"
	defaultTimeout = 30 * time.Second
)

// Client reads and writes one spreadsheet's worksheets through the
// Sheets v4 REST API. It satisfies the sheet service's Store interface;
// destination IDs are worksheet titles within the configured
// spreadsheet.
type Client struct {
	baseURL       string
	spreadsheetID string
	accessToken   string
	httpClient    *http.Client

	mu       sync.Mutex
	sheetIDs map[string]int64
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

// New creates a client for one spreadsheet
func New(spreadsheetID, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       defaultBaseURL,
		spreadsheetID: spreadsheetID,
		accessToken:   accessToken,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		sheetIDs:      make(map[string]int64),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error response from the Sheets API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets API error (status %d): %s", e.StatusCode, e.Message)
}

type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

// LoadGrid fetches a worksheet's formatted values as a grid snapshot
func (c *Client) LoadGrid(ctx context.Context, destID string) (*entity.Grid, error) {
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s", c.spreadsheetID, url.PathEscape(destID))
	query := url.Values{"valueRenderOption": {"FORMATTED_VALUE"}}

	var out valueRange
	if err := c.do(ctx, http.MethodGet, path+"?"+query.Encode(), nil, &out); err != nil {
		return nil, c.worksheetErr(destID, err)
	}
	return entity.NewGrid(out.Values), nil
}

// UpdateCell writes one cell, 0-indexed
func (c *Client) UpdateCell(ctx context.Context, destID string, row, col int, value string) error {
	rng := fmt.Sprintf("%s!%s", destID, a1(row, col))
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s", c.spreadsheetID, url.PathEscape(rng))
	query := url.Values{"valueInputOption": {"USER_ENTERED"}}

	in := valueRange{Values: [][]string{{value}}}
	if err := c.do(ctx, http.MethodPut, path+"?"+query.Encode(), in, nil); err != nil {
		return c.worksheetErr(destID, err)
	}
	return nil
}

// SetHeader writes a header cell. The Sheets API makes no distinction
// from a value write; the Store interface keeps them separate so fakes
// can assert on structural intent.
func (c *Client) SetHeader(ctx context.Context, destID string, row, col int, value string) error {
	return c.UpdateCell(ctx, destID, row, col, value)
}

// InsertColumnAfter inserts one empty column directly after col. A
// conflicting concurrent mutation surfaces as ErrStructuralConflict so
// the caller can re-read and retry.
func (c *Client) InsertColumnAfter(ctx context.Context, destID string, col int) error {
	sheetID, err := c.sheetID(ctx, destID)
	if err != nil {
		return err
	}

	in := map[string]any{
		"requests": []map[string]any{{
			"insertDimension": map[string]any{
				"range": map[string]any{
					"sheetId":    sheetID,
					"dimension":  "COLUMNS",
					"startIndex": col + 1,
					"endIndex":   col + 2,
				},
				"inheritFromBefore": true,
			},
		}},
	}

	path := fmt.Sprintf("/v4/spreadsheets/%s:batchUpdate", c.spreadsheetID)
	if err := c.do(ctx, http.MethodPost, path, in, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return fmt.Errorf("inserting column in %q: %w", destID, entity.ErrStructuralConflict)
		}
		return c.worksheetErr(destID, err)
	}
	return nil
}

type spreadsheetMeta struct {
	Sheets []struct {
		Properties struct {
			SheetID int64  `json:"sheetId"`
			Title   string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

// sheetID resolves a worksheet title to its numeric sheet ID, caching
// the full title map on first use.
func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	path := fmt.Sprintf("/v4/spreadsheets/%s?fields=sheets.properties", c.spreadsheetID)
	var meta spreadsheetMeta
	if err := c.do(ctx, http.MethodGet, path, nil, &meta); err != nil {
		return 0, err
	}

	c.mu.Lock()
	for _, s := range meta.Sheets {
		c.sheetIDs[s.Properties.Title] = s.Properties.SheetID
	}
	id, ok = c.sheetIDs[title]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("worksheet %q: %w", title, entity.ErrWorksheetNotFound)
	}
	return id, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiMessage(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// worksheetErr maps a 400/404 answer to ErrWorksheetNotFound so callers
// can treat a missing tab as a routing problem, not a transport one.
func (c *Client) worksheetErr(destID string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusBadRequest) &&
		strings.Contains(strings.ToLower(apiErr.Message), "range") {
		return fmt.Errorf("worksheet %q: %w", destID, entity.ErrWorksheetNotFound)
	}
	return err
}

func apiMessage(raw []byte) string {
	var out struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err == nil && out.Error.Message != "" {
		return out.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// a1 converts 0-indexed row/col to A1 notation
func a1(row, col int) string {
	letters := ""
	for n := col; n >= 0; n = n/26 - 1 {
		letters = string(rune('A'+n%26)) + letters
	}
	return fmt.Sprintf("%s%d", letters, row+1)
}
