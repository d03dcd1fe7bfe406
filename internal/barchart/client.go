package barchart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the vendor history endpoint.
const DefaultBaseURL = "https://marketdata.websol.barchart.com/getHistory.json"

// bodyPreviewLen caps how much of an unexpected body ends up in errors and logs.
const bodyPreviewLen = 512

// Client fetches price history for one ticker per call.
type Client struct {
	baseURL string
	creds   Credentials
	http    Doer
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the history endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client (rate limiter, proxy, test server client).
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. The primary token is required.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if creds.Primary == "" {
		return nil, errors.New("barchart: primary API key is required")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		creds:   creds,
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(0, "")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Query returns the QuerySpec Fetch would send for ticker and iv.
func (c *Client) Query(ticker string, iv Interval) QuerySpec {
	return NewQuerySpec(ticker, iv, c.creds)
}

// Fetch requests the full history for ticker at the given interval and returns
// the vendor `results` array unchanged. A single attempt is made.
func (c *Client) Fetch(ctx context.Context, ticker string, iv Interval) ([]RawBar, error) {
	return c.FetchQuery(ctx, c.Query(ticker, iv), iv)
}

// FetchQuery issues q as-is. iv only labels errors and logs.
func (c *Client) FetchQuery(ctx context.Context, q QuerySpec, iv Interval) ([]RawBar, error) {
	ticker := q.Symbol
	fail := func(kind Kind, status int, err error) error {
		return &FetchError{Kind: kind, Ticker: ticker, Interval: iv, Status: status, Err: err}
	}

	req, err := c.buildRequest(ctx, q)
	if err != nil {
		return nil, fail(KindUnknownTransport, 0, stripQuery(err))
	}

	c.logger.Info("requesting history", "ticker", ticker, "interval", iv)
	resp, err := c.http.Do(req)
	if err != nil {
		err = stripQuery(err)
		if isTimeout(err) {
			return nil, fail(KindTimeout, 0, err)
		}
		return nil, fail(KindUnknownTransport, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLen))
		return nil, fail(KindHTTP, resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	contentType := resp.Header.Get("Content-Type")
	c.logger.Debug("response", "ticker", ticker, "status", resp.StatusCode, "content_type", contentType)
	if !strings.Contains(strings.ToLower(contentType), "json") {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLen))
		c.logger.Debug("non-json body", "ticker", ticker, "body", string(body))
		return nil, fail(KindNonJSON, resp.StatusCode, fmt.Errorf("content type %q, daily API limit most likely reached", contentType))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = stripQuery(err)
		if isTimeout(err) {
			return nil, fail(KindTimeout, resp.StatusCode, err)
		}
		return nil, fail(KindUnknownTransport, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	results, kind, err := decodeResults(body)
	if err != nil {
		return nil, fail(kind, resp.StatusCode, err)
	}
	c.logger.Info("history ok", "ticker", ticker, "interval", iv, "bars", len(results))
	return results, nil
}

func (c *Client) buildRequest(ctx context.Context, q QuerySpec) (*http.Request, error) {
	u := c.baseURL + "?" + q.Values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// decodeResults applies the body checks in order: decodable, non-null,
// non-empty, non-empty `results`.
func decodeResults(body []byte) ([]RawBar, Kind, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, KindEmptyBody, errors.New("data returned is empty")
	}

	var generic any
	if err := json.Unmarshal(trimmed, &generic); err != nil {
		return nil, KindMalformedBody, fmt.Errorf("decode body: %w", err)
	}
	switch v := generic.(type) {
	case nil:
		return nil, KindNullBody, errors.New("data returned is null")
	case map[string]any:
		if len(v) == 0 {
			return nil, KindEmptyBody, errors.New("data returned is empty")
		}
	case []any:
		if len(v) == 0 {
			return nil, KindEmptyBody, errors.New("data returned is empty")
		}
		return nil, KindMalformedBody, errors.New("expected a JSON object with a results field")
	case string:
		if v == "" {
			return nil, KindEmptyBody, errors.New("data returned is empty")
		}
		return nil, KindMalformedBody, errors.New("expected a JSON object with a results field")
	default:
		return nil, KindMalformedBody, errors.New("expected a JSON object with a results field")
	}

	var env historyResponse
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, KindMalformedBody, fmt.Errorf("decode results: %w", err)
	}
	if len(env.Results) == 0 {
		if env.Status != nil && env.Status.Message != "" {
			return nil, KindNoResults, fmt.Errorf("no results, most likely invalid ticker (vendor status %d: %s)", env.Status.Code, env.Status.Message)
		}
		return nil, KindNoResults, errors.New("no results, most likely invalid ticker")
	}
	return env.Results, 0, nil
}

// stripQuery drops the query string, which carries both tokens, from a
// *url.Error so the request URL never reaches logs or reports.
func stripQuery(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u := ue.URL
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return &url.Error{Op: ue.Op, URL: u, Err: ue.Err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
