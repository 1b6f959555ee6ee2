package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 300 * time.Second

	// Rate-limit backoff grows as (2^retry * rateLimitBackoffUnit) plus a
	// fixed or jittered pad of up to one backoffPad.
	rateLimitBackoffUnit = 2 * time.Second
	backoffPad           = 1 * time.Second

	// Non-rate-limit image failures wait a flat delay before retrying.
	imageRetryFlatDelay = 2 * time.Second
)

// Config captures the runtime settings required to talk to the Gemini API.
type Config struct {
	APIKey         string
	BaseURL        string
	TextModel      string
	ImageModel     string
	TimeoutSeconds int
}

// Client wraps the Gemini generateContent API for storyboard authoring,
// reference analysis, prompt refinement, and image generation.
type Client struct {
	cfg        Config
	httpClient *http.Client

	sleeper func(time.Duration)
	jitter  func() float64
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithJitter overrides the jitter source for image retry backoff (useful for
// tests). The function must return a value in [0, 1).
func WithJitter(jitter func() float64) Option {
	return func(c *Client) {
		c.jitter = jitter
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TextModel:      strings.TrimSpace(cfg.TextModel),
			ImageModel:     strings.TrimSpace(cfg.ImageModel),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		jitter:     rand.Float64,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.jitter == nil {
		client.jitter = rand.Float64
	}
	return client
}

// InlineImage is binary image content attached to a request or returned by
// the image model.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

type generateContentRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
	Seed               *int64   `json:"seed,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	API        *apiError
}

func (e *httpStatusError) Error() string {
	if e.API != nil && e.API.Message != "" {
		return fmt.Sprintf("gemini request: http %d (%s): %s", e.StatusCode, e.API.Status, e.API.Message)
	}
	return fmt.Sprintf("gemini request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func inlinePart(image InlineImage) part {
	return part{InlineData: &inlineData{
		MIMEType: image.MIMEType,
		Data:     base64.StdEncoding.EncodeToString(image.Data),
	}}
}

func (c *Client) generateOnce(ctx context.Context, model string, payload generateContentRequest) (generateContentResponse, error) {
	var decoded generateContentResponse
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return decoded, errors.New("gemini request: api key required")
	}
	if strings.TrimSpace(model) == "" {
		return decoded, errors.New("gemini request: model required")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, model)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return decoded, fmt.Errorf("gemini request: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return decoded, fmt.Errorf("gemini request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decoded, fmt.Errorf("gemini request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decoded, fmt.Errorf("gemini request: read body: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		var envelope struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			statusErr.API = envelope.Error
		}
		return decoded, statusErr
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		return decoded, fmt.Errorf("gemini request: decode response: %w", err)
	}
	if decoded.Error != nil {
		return decoded, fmt.Errorf("gemini request: api error (%s): %s", decoded.Error.Status, decoded.Error.Message)
	}
	return decoded, nil
}

func (c *Client) firstText(resp generateContentResponse) string {
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if trimmed := strings.TrimSpace(p.Text); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func (c *Client) firstImage(resp generateContentResponse) (InlineImage, bool) {
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil || len(data) == 0 {
				continue
			}
			mimeType := p.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return InlineImage{MIMEType: mimeType, Data: data}, true
		}
	}
	return InlineImage{}, false
}

// rateLimitDelay implements exponential backoff for quota responses. retry is
// zero-based; the pad is fixed for text ops and jittered for image ops.
func rateLimitDelay(retry int, pad time.Duration) time.Duration {
	return time.Duration(1<<uint(retry))*rateLimitBackoffUnit + pad
}

func (c *Client) jitterPad() time.Duration {
	return time.Duration(c.jitter() * float64(backoffPad))
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("gemini retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
