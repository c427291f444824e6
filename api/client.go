package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"biblioflow/library"
)

// DefaultTimeout bounds a single call.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to the BiblioFlow REST service. It implements
// library.Backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	newID      func() string
}

var _ library.Backend = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zerolog.Nop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL is the origin every path is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON sends in (when non-nil) as the JSON body and decodes the response
// into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := c.newID()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Str("request_id", reqID).Msg("api call failed")
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &UnreachableError{BaseURL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", reqID).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func pathID(prefix, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		if prefix == "" {
			return "", errors.New("id is required")
		}
		return "", fmt.Errorf("%s id is required", strings.Trim(prefix, "/"))
	}
	return prefix + "/" + url.PathEscape(id), nil
}
