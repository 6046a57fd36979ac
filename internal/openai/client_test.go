package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:      "sk-test",
		BaseURL:     srv.URL,
		VisionModel: "gpt-4o",
		ImageModel:  "dall-e-3",
	}, nil)
}

func TestDescribeImage_SendsDataURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"model":"gpt-4o"`)
		assert.Contains(t, string(body), "data:image/png;base64,AQID")
		assert.Contains(t, string(body), "Describe this")

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  A red bicycle leaning on a wall.  "}}]}`))
	})

	text, err := c.DescribeImage(context.Background(), []byte{1, 2, 3}, "image/png", "Describe this")
	require.NoError(t, err)
	assert.Equal(t, "A red bicycle leaning on a wall.", text)
}

func TestDescribeImage_EmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.DescribeImage(context.Background(), []byte{1}, "", "x")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestGenerateImage_ReturnsURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "dall-e-3", payload["model"])
		assert.EqualValues(t, 1, payload["n"])
		assert.Equal(t, "1024x1024", payload["size"])
		assert.Equal(t, "hd", payload["quality"])

		_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/out.png","revised_prompt":"rp"}]}`))
	})

	img, err := c.GenerateImage(context.Background(), GenerateOptions{Prompt: "a cat", Quality: "hd"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/out.png", img.URL)
	assert.Equal(t, "rp", img.RevisedPrompt)
}

func TestGenerateImage_MissingURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"abc"}]}`))
	})

	_, err := c.GenerateImage(context.Background(), GenerateOptions{Prompt: "a cat"})
	assert.ErrorIs(t, err, ErrMissingImageURL)
}

func TestGenerateImage_ProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid input image - format must be png","type":"invalid_request_error","code":null}}`))
	})

	_, err := c.GenerateImage(context.Background(), GenerateOptions{Prompt: "a cat"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.True(t, strings.Contains(apiErr.Message, "Invalid input image"))
	assert.False(t, apiErr.ServerSide())
}

func TestBreaker_OpensAfterServerFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := c.GenerateImage(context.Background(), GenerateOptions{Prompt: "x"})
		require.Error(t, err)
	}
	_, err := c.GenerateImage(context.Background(), GenerateOptions{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	for i := 0; i < 7; i++ {
		_, _ = c.GenerateImage(context.Background(), GenerateOptions{Prompt: "x"})
	}
	assert.Equal(t, int32(7), atomic.LoadInt32(&calls))
}
