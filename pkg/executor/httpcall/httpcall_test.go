package httpcall

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/common-fate/flow/pkg/executor"
	"github.com/common-fate/flow/pkg/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "yes", r.Header.Get("X-Test"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, `{"a":1}`, string(body))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 7}`))
		case "/text":
			user, pass, _ := r.BasicAuth()
			assert.Equal(t, "u", user)
			assert.Equal(t, "p", pass)
			_, _ = w.Write([]byte("plain"))
		case "/ok":
			_, _ = w.Write([]byte("ok"))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": "not found"}`))
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer srv.Close()

	c := &Client{}

	t.Run("json", func(t *testing.T) {
		out, err := c.Execute(context.Background(), node.HTTPRequestData{
			Method:  "post",
			URL:     srv.URL + "/json",
			Headers: map[string]string{"X-Test": "yes"},
			Auth:    node.Auth{Type: "bearer", Token: "secret"},
			Body:    `{"a":1}`,
		})
		require.NoError(t, err)
		assert.Equal(t, 200, out["status"])
		assert.Equal(t, map[string]any{"id": float64(7)}, out["body"])
		assert.Equal(t, "application/json", out["headers"].(map[string]string)["Content-Type"])
	})

	t.Run("text with basic auth", func(t *testing.T) {
		out, err := c.Execute(context.Background(), node.HTTPRequestData{
			URL:  srv.URL + "/text",
			Auth: node.Auth{Type: "basic", Username: "u", Password: "p"},
		})
		require.NoError(t, err)
		assert.Equal(t, "plain", out["body"])
	})

	t.Run("client error", func(t *testing.T) {
		_, err := c.Execute(context.Background(), node.HTTPRequestData{URL: srv.URL + "/missing"})
		var xerr *executor.Error
		require.True(t, errors.As(err, &xerr))
		assert.Equal(t, "request failed with status 404", xerr.Message)
		assert.True(t, xerr.Permanent)
		assert.Equal(t, 404, xerr.Output["status"])
	})

	t.Run("server error is retryable", func(t *testing.T) {
		_, err := c.Execute(context.Background(), node.HTTPRequestData{URL: srv.URL + "/broken"})
		var xerr *executor.Error
		require.True(t, errors.As(err, &xerr))
		assert.False(t, xerr.Permanent)
	})

	t.Run("step timeout", func(t *testing.T) {
		_, err := c.Execute(context.Background(), node.HTTPRequestData{URL: srv.URL + "/slow", TimeoutSeconds: 0.01})
		assert.Error(t, err)
	})

	t.Run("webhook", func(t *testing.T) {
		out, err := c.Execute(context.Background(), node.WebhookTriggerData{Method: "GET", URL: srv.URL + "/ok"})
		require.NoError(t, err)
		assert.Equal(t, 200, out["status"])
	})

	t.Run("no url", func(t *testing.T) {
		_, err := c.Execute(context.Background(), node.HTTPRequestData{})
		assert.EqualError(t, err, "a URL is required")
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := c.Execute(context.Background(), node.DelayData{})
		assert.Error(t, err)
	})
}
