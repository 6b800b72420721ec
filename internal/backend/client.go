package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a non-2xx body ends up in error messages.
const maxErrorBody = 4096

// newHTTPClient builds a client without an overall timeout: every request
// carries its own deadline through its context.
func newHTTPClient(connectTimeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr, Timeout: 0}
}

// endpoint holds what every request to one backend needs.
type endpoint struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// statusError is a non-2xx response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.Code, e.Body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.Code == http.StatusNotFound
}

// do sends one request with the given timeout and returns the body of a 2xx response.
func (e endpoint) do(ctx context.Context, method, path string, payload any, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return io.ReadAll(resp.Body)
}
