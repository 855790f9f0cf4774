package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/lunahan/aestimo/internal/models"
)

const (
	// DefaultBaseURL is the tushare pro gateway.
	DefaultBaseURL = "https://api.tushare.pro"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default minimum interval between calls.
	DefaultRateLimit = 300 * time.Millisecond
)

// APIError is a non-success response from the vendor gateway. The code is
// the vendor's own error code when the HTTP exchange succeeded, or the
// HTTP status otherwise.
type APIError struct {
	Code     int
	Message  string
	Endpoint string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tushare api %s failed: code=%d msg=%s", e.Endpoint, e.Code, e.Message)
}

// Client speaks the tushare pro JSON-over-POST wire protocol. Tinyshare
// exposes the same protocol on its own gateway, so the secondary vendor
// reuses this client with a different base URL.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom gateway URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the minimum interval between calls.
func WithRateLimit(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// NewClient creates a vendor wire client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(DefaultRateLimit), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// apiRequest is the wire shape of one vendor call.
type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

// apiResponse is the wire shape of one vendor response.
type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string          `json:"fields"`
		Items  [][]json.RawMessage `json:"items"`
	} `json:"data"`
}

// Call issues one vendor API call and converts the columnar response to a
// Table. A response with zero items is a valid empty table.
func (c *Client) Call(ctx context.Context, apiName string, params map[string]string) (*models.Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait interrupted: %w", err)
	}

	if params == nil {
		params = map[string]string{}
	}
	body, err := json.Marshal(apiRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("api", apiName).
			Msg("Vendor API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			Code:     resp.StatusCode,
			Message:  string(raw),
			Endpoint: apiName,
		}
	}

	var decoded apiResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if decoded.Code != 0 {
		return nil, &APIError{
			Code:     decoded.Code,
			Message:  decoded.Msg,
			Endpoint: apiName,
		}
	}

	table := models.NewTable(decoded.Data.Fields...)
	for _, item := range decoded.Data.Items {
		cells := make([]models.Cell, len(item))
		for i, raw := range item {
			cells[i] = cellFromRaw(raw)
		}
		table.AppendRow(cells...)
	}
	return table, nil
}

// cellFromRaw converts one wire scalar into a typed cell.
func cellFromRaw(raw json.RawMessage) models.Cell {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return models.String(string(raw))
	}
	return models.CellFrom(v)
}
