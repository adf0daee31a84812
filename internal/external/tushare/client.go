package tushare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chilam/strongpool/pkg/config"
	"github.com/chilam/strongpool/pkg/httputil"
	"github.com/chilam/strongpool/pkg/logger"
)

// Client talks to the Tushare Pro HTTP API: a single POST endpoint that
// multiplexes named queries and returns column-oriented frames.
//
// The client is constructed once per run from explicit config. An empty
// token builds a distinct anonymous client (IsAnonymous) instead of
// falling back silently; most endpoints reject it, which surfaces as a
// normal API error.
type Client struct {
	http      *httputil.Client
	baseURL   string
	token     string
	anonymous bool
	logger    *logger.Logger
}

// NewClient creates a Tushare client from config. The per-minute request
// budget is enforced client-side; Tushare throttles by token.
func NewClient(cfg config.TushareConfig, log *logger.Logger) *Client {
	httpClient := httputil.NewWithTimeout(log, 60*time.Second).
		WithRateLimit(cfg.RatePerMin, time.Minute)

	c := &Client{
		http:      httpClient,
		baseURL:   cfg.BaseURL,
		token:     cfg.Token,
		anonymous: cfg.Token == "",
		logger:    log.WithField("module", "tushare"),
	}

	if c.anonymous {
		c.logger.Warn("No Tushare token configured, client is anonymous; data endpoints will likely be rejected")
	}

	return c
}

// IsAnonymous reports whether the client was built without a token.
func (c *Client) IsAnonymous() bool {
	return c.anonymous
}

// apiRequest is the Tushare Pro request envelope.
type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields,omitempty"`
}

// apiResponse is the Tushare Pro response envelope.
type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *Frame `json:"data"`
}

// Frame is a column-oriented result set.
type Frame struct {
	Fields []string        `json:"fields"`
	Items  [][]interface{} `json:"items"`
}

// Index returns the column position of a field, or -1.
func (f *Frame) Index(name string) int {
	for i, field := range f.Fields {
		if field == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Items)
}

// Str reads a string cell; empty on null or type mismatch.
func (f *Frame) Str(row, col int) string {
	if col < 0 || row >= len(f.Items) || col >= len(f.Items[row]) {
		return ""
	}
	s, _ := f.Items[row][col].(string)
	return s
}

// Float reads a numeric cell; the second return is false on null or
// type mismatch. Tushare serializes numbers as JSON floats.
func (f *Frame) Float(row, col int) (float64, bool) {
	if col < 0 || row >= len(f.Items) || col >= len(f.Items[row]) {
		return 0, false
	}
	v, ok := f.Items[row][col].(float64)
	return v, ok
}

// Call executes one named query. A non-zero API code is an error; an
// empty frame is not.
func (c *Client) Call(ctx context.Context, apiName string, params map[string]string, fields string) (*Frame, error) {
	req := apiRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  fields,
	}

	resp, err := c.http.PostJSON(ctx, c.baseURL, req)
	if err != nil {
		return nil, fmt.Errorf("tushare %s: %w", apiName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tushare %s: unexpected status %d", apiName, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tushare %s: read body: %w", apiName, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("tushare %s: parse response: %w", apiName, err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("tushare %s: api error %d: %s", apiName, parsed.Code, parsed.Msg)
	}
	if parsed.Data == nil {
		return &Frame{}, nil
	}

	c.logger.WithFields(map[string]interface{}{
		"api":  apiName,
		"rows": parsed.Data.Len(),
	}).Debug("Tushare call completed")

	return parsed.Data, nil
}

const tradeDateLayout = "20060102"

// formatDate renders a date in Tushare's YYYYMMDD convention.
func formatDate(t time.Time) string {
	return t.Format(tradeDateLayout)
}

// parseDate parses Tushare's YYYYMMDD convention.
func parseDate(s string) (time.Time, error) {
	return time.Parse(tradeDateLayout, s)
}
