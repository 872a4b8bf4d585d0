// Package remote is the networked data-access implementation: a JSON HTTP
// client for the booking API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
)

// IdempotencyHeader carries the booking draft key on create-booking calls
const IdempotencyHeader = "Idempotency-Key"

// Options configures the client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client implements api.Backend over HTTP
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

var _ api.Backend = (*Client)(nil)

// NewClient creates a client for the API at opts.BaseURL
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL: baseURL,
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}, nil
}

type validatable interface {
	Validate() error
}

type request struct {
	method  string
	path    string
	body    interface{}
	headers map[string]string
}

// do sends req and decodes a 2xx JSON response into out (which may be nil).
// Non-2xx responses become *api.Error carrying the body's detail.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token, ok := api.TokenFrom(ctx); ok {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": req.method,
			"path":   req.path,
		}).WithError(err).Warn("Backend request failed")
		return api.Unavailable(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.Unavailable(fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.WithFields(logrus.Fields{
		"method":      req.method,
		"path":        req.path,
		"status_code": resp.StatusCode,
		"latency":     time.Since(start).String(),
	}).Debug("Backend response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &api.Error{Status: resp.StatusCode, Detail: extractDetail(resp.StatusCode, respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &api.Error{
			Status: http.StatusBadGateway,
			Detail: "unreadable response from booking service",
			Err:    fmt.Errorf("failed to parse response: %w", err),
		}
	}
	return nil
}

// extractDetail reads {"detail": ...}. The detail is either a message or a
// list of field errors, each with a "msg".
func extractDetail(status int, body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var msg string
		if err := json.Unmarshal(envelope.Detail, &msg); err == nil && msg != "" {
			return msg
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// getOne fetches a single resource and validates it
func getOne[T any, PT interface {
	*T
	validatable
}](ctx context.Context, c *Client, req request, resource string) (*T, error) {
	out := PT(new(T))
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, api.InvalidPayload(resource, err)
	}
	return (*T)(out), nil
}

// getList fetches a collection and validates every element
func getList[T any, PT interface {
	*T
	validatable
}](ctx context.Context, c *Client, req request, resource string) ([]T, error) {
	var out []T
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := PT(&out[i]).Validate(); err != nil {
			return nil, api.InvalidPayload(resource, err)
		}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
