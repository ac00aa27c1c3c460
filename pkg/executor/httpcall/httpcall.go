// Package httpcall executes HTTP request and webhook steps.
package httpcall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/common-fate/flow/pkg/executor"
	"github.com/common-fate/flow/pkg/node"
	"github.com/pkg/errors"
)

// DefaultTimeout is used when neither the step nor the client set a timeout.
const DefaultTimeout = 30 * time.Second

// maxBody is the largest response body which will be read.
const maxBody = 10 << 20

// Client executes HTTP steps.
type Client struct {
	// HTTP is http.DefaultClient if not provided.
	HTTP *http.Client
	// Timeout is DefaultTimeout if not provided.
	Timeout time.Duration
}

// Result is the output of an HTTP step.
type Result struct {
	Status     int               `mapstructure:"status"`
	Headers    map[string]string `mapstructure:"headers"`
	Body       any               `mapstructure:"body"`
	URL        string            `mapstructure:"url"`
	DurationMS int64             `mapstructure:"durationMs"`
}

type request struct {
	method  string
	url     string
	headers map[string]string
	auth    node.Auth
	body    string
	timeout time.Duration
}

func (c *Client) Execute(ctx context.Context, data node.Data) (executor.Output, error) {
	var req request
	switch d := data.(type) {
	case node.HTTPRequestData:
		req = request{
			method:  d.Method,
			url:     d.URL,
			headers: d.Headers,
			auth:    d.Auth,
			body:    d.Body,
			timeout: time.Duration(d.TimeoutSeconds * float64(time.Second)),
		}
	case node.WebhookTriggerData:
		req = request{method: d.Method, url: d.URL, headers: d.Headers, body: d.Body}
	default:
		return nil, fmt.Errorf("httpcall: can't execute %s steps", data.Kind())
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, r request) (executor.Output, error) {
	if r.url == "" {
		return nil, &executor.Error{Message: "a URL is required", Permanent: true}
	}
	if r.method == "" {
		r.method = http.MethodGet
	}
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(r.method), r.url, body)
	if err != nil {
		return nil, &executor.Error{Message: fmt.Sprintf("invalid request: %s", err), Permanent: true}
	}
	if r.body != "" && json.Valid([]byte(r.body)) {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	switch strings.ToLower(r.auth.Type) {
	case "basic":
		req.SetBasicAuth(r.auth.Username, r.auth.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+r.auth.Token)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	res, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, r.url)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}

	// decode JSON bodies, and fall back to the raw string
	var decoded any
	if json.Unmarshal(raw, &decoded) != nil {
		decoded = string(raw)
	}

	headers := make(map[string]string, len(res.Header))
	for k := range res.Header {
		headers[k] = res.Header.Get(k)
	}

	out := executor.ToOutput(Result{
		Status:     res.StatusCode,
		Headers:    headers,
		Body:       decoded,
		URL:        r.url,
		DurationMS: time.Since(start).Milliseconds(),
	})

	if res.StatusCode >= 400 {
		return out, &executor.Error{
			Message: fmt.Sprintf("request failed with status %d", res.StatusCode),
			Output:  out,
			// client errors won't succeed on retry.
			Permanent: res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests,
		}
	}
	return out, nil
}
