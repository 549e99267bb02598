// Package backend is the HTTP/JSON client for the portal's REST collaborators.
// Every collection lives under its own configured base URL; the client only
// knows how to move JSON in and out and how to report non-2xx responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// maxErrorBody caps how much of a failed response body is kept on StatusError.
const maxErrorBody = 4 << 10

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
}

// IsStatus reports whether err carries one of the given HTTP status codes.
func IsStatus(err error, codes ...int) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.Code == c {
			return true
		}
	}
	return false
}

// Decode unmarshals the body kept on a StatusError. It returns false when err
// is not a StatusError or the body is not valid JSON for out.
func Decode(err error, out interface{}) bool {
	var se *StatusError
	if !errors.As(err, &se) || len(se.Body) == 0 {
		return false
	}
	return json.Unmarshal(se.Body, out) == nil
}

type Client struct {
	http   *http.Client
	logger zerolog.Logger
}

func NewClient(timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "backend").Logger(),
	}
}

// Do sends body (when non-nil) as JSON and decodes a JSON response into out
// (when non-nil). Non-2xx responses are returned as *StatusError.
func (c *Client) Do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, url, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("url", url).Msg("backend request failed")
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, URL: url, Code: resp.StatusCode, Body: data}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, url, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, url string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, url, nil, out)
}

func (c *Client) Post(ctx context.Context, url string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, url, body, out)
}

func (c *Client) Put(ctx context.Context, url string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, url, body, out)
}

func (c *Client) Delete(ctx context.Context, url string) error {
	return c.Do(ctx, http.MethodDelete, url, nil, nil)
}
