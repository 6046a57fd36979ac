package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/digkill/artrelay/internal/metrics"
)

const (
	defaultBaseURL = "https://api.openai.com"
	breakerName    = "openai"
)

var (
	// ErrMissingImageURL means the generation call succeeded but returned no URL.
	ErrMissingImageURL = errors.New("image generation response has no url")
	ErrEmptyCompletion = errors.New("vision response has no content")
)

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openai error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("openai error: status=%d type=%s: %s", e.StatusCode, e.Type, e.Message)
}

// ServerSide reports whether the failure is the provider's fault rather than
// the request's.
func (e *APIError) ServerSide() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type Config struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	ImageModel  string
	Timeout     time.Duration
}

type Client struct {
	apiKey      string
	baseURL     string
	visionModel string
	imageModel  string
	httpClient  *http.Client
	log         *slog.Logger
	breaker     *gobreaker.CircuitBreaker[[]byte]
}

type GenerateOptions struct {
	Prompt  string
	Size    string
	Quality string
}

type Image struct {
	URL           string
	RevisedPrompt string
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}

	c := &Client{
		apiKey:      cfg.APIKey,
		baseURL:     base,
		visionModel: cfg.VisionModel,
		imageModel:  cfg.ImageModel,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			if c.log != nil {
				c.log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return c
}

// isBreakerSuccess keeps request-caused failures from tripping the breaker.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.ServerSide()
	}
	return false
}

// DescribeImage sends the image inline as a data URL together with the
// instruction and returns the model's free-text answer.
func (c *Client) DescribeImage(ctx context.Context, data []byte, contentType, instruction string) (string, error) {
	if contentType == "" {
		contentType = "image/png"
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	payload := map[string]any{
		"model": c.visionModel,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": instruction},
					{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
				},
			},
		},
		"max_tokens": 500,
	}

	start := time.Now()
	raw, err := c.post(ctx, "/v1/chat/completions", payload)
	metrics.ObserveProvider(breakerName, "describe", start, err)
	if err != nil {
		return "", err
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode completion: %w (body=%s)", err, truncateBody(raw))
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	msg := resp.Choices[0].Message
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		text = strings.TrimSpace(msg.Refusal)
	}
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// GenerateImage requests exactly one image and returns its hosted URL.
func (c *Client) GenerateImage(ctx context.Context, opts GenerateOptions) (*Image, error) {
	if opts.Size == "" {
		opts.Size = "1024x1024"
	}
	if opts.Quality == "" {
		opts.Quality = "standard"
	}
	payload := map[string]any{
		"model":           c.imageModel,
		"prompt":          opts.Prompt,
		"n":               1,
		"size":            opts.Size,
		"quality":         opts.Quality,
		"response_format": "url",
	}

	if c.log != nil {
		c.log.Info("requesting image generation", "model", c.imageModel, "prompt_chars", len(opts.Prompt))
	}

	start := time.Now()
	raw, err := c.post(ctx, "/v1/images/generations", payload)
	metrics.ObserveProvider(breakerName, "generate", start, err)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			URL           string `json:"url"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode generation: %w (body=%s)", err, truncateBody(raw))
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, ErrMissingImageURL
	}
	return &Image{URL: resp.Data[0].URL, RevisedPrompt: resp.Data[0].RevisedPrompt}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, payload)
	})
}

func (c *Client) do(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	fullURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post openai: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    any    `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rawBody, &parsed); err == nil {
			apiErr.Message = parsed.Error.Message
			apiErr.Type = parsed.Error.Type
			if parsed.Error.Code != nil {
				apiErr.Code = fmt.Sprint(parsed.Error.Code)
			}
		} else {
			apiErr.Message = truncateBody(rawBody)
		}
		if c.log != nil {
			c.log.Error("openai request failed", "status", resp.StatusCode, "path", path, "type", apiErr.Type, "message", apiErr.Message)
		}
		return nil, apiErr
	}

	return rawBody, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
