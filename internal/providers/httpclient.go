package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer defines the http.Client interface subset adapters use.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// baseClient provides GET/POST helpers shared by all adapters. Each
// adapter owns its base URL and bearer credential.
type baseClient struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

func newBaseClient(baseURL, apiKey string, client HTTPDoer) *baseClient {
	return &baseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (c *baseClient) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// getJSON issues a GET and decodes a 2xx body into out. Non-2xx and
// transport errors come back classified.
func (c *baseClient) getJSON(ctx context.Context, provider, op, path string, out any) error {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil || status < 200 || status >= 300 {
		return classify(provider, op, status, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return newError(provider, op, ReasonUnavailable, err)
	}
	return nil
}

// postJSON issues a POST with a JSON body and decodes a 2xx response.
func (c *baseClient) postJSON(ctx context.Context, provider, op, path string, in, out any) error {
	status, body, err := c.do(ctx, http.MethodPost, path, in)
	if err != nil || status < 200 || status >= 300 {
		return classify(provider, op, status, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return newError(provider, op, ReasonUnavailable, err)
	}
	return nil
}

// NewDefaultHTTPClient returns an *http.Client with an overall
// timeout; per-call deadlines still come from the request context.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
