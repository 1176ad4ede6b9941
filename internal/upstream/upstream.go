// Package upstream holds the outbound HTTP plumbing shared by every external
// collaborator: one pooled client, JSON request helpers, and the mapping of
// transport errors to short reasons that are safe to show to API callers.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mbd888/chainrisk/internal/circuitbreaker"
	"github.com/mbd888/chainrisk/internal/signal"
)

// maxBody caps how much of an upstream response is read.
const maxBody = 4 << 20

// NewClient returns the pooled client shared by all adapters. Per-call
// deadlines come from the request context, so the client timeout is only a
// backstop.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("upstream status %d", e.Code) }

// Request describes one JSON call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any // marshalled as JSON when non-nil
}

// Do performs the call and returns the raw body of a 2xx response.
func Do(ctx context.Context, client *http.Client, r Request) ([]byte, error) {
	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return data, nil
}

// DoJSON performs the call and decodes a 2xx body into out. Decode failures
// wrap signal.ErrMalformedPayload.
func DoJSON(ctx context.Context, client *http.Client, r Request, out any) error {
	data, err := Do(ctx, client, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", signal.ErrMalformedPayload, err)
	}
	return nil
}

// Reason maps an adapter error to a short, credential-free description.
// URLs, headers and upstream bodies never appear in the result.
func Reason(err error) string {
	var se *StatusError
	var ne net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "circuit open"
	case errors.Is(err, signal.ErrMalformedPayload):
		return signal.ErrMalformedPayload.Error()
	case errors.As(err, &se):
		return se.Error()
	case errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	default:
		return "request failed"
	}
}
