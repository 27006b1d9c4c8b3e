// Package gemini provides a Gemini-backed model completer for the
// compliance classifier.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const maxBackoff = 30 * time.Second

// Completer answers prompts with the Gemini API. It implements
// compliance.Completer.
type Completer struct {
	client   *genai.Client
	model    string
	attempts uint
	delay    time.Duration
	logger   *zap.Logger
}

// Option configures a Completer.
type Option func(*options)

type options struct {
	attempts uint
	delay    time.Duration
	logger   *zap.Logger
	baseURL  string
}

// WithRetry sets how often each request is attempted and the initial backoff.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.attempts = attempts
		}
		o.delay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// New creates a Completer for model.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	o := options{attempts: 3, delay: time.Second, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if o.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Completer{
		client:   client,
		model:    model,
		attempts: o.attempts,
		delay:    o.delay,
		logger:   o.logger,
	}, nil
}

// Name identifies the completer in verdicts.
func (c *Completer) Name() string { return "gemini" }

// Model returns the configured model.
func (c *Completer) Model() string { return c.model }

// Complete sends prompt with temperature 0 and returns the response text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 32,
	}

	attempt := 0
	text, err := retry.DoWithData(func() (string, error) {
		attempt++
		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
		if err != nil {
			c.logger.Debug("gemini request failed",
				zap.String("model", c.model), zap.Int("attempt", attempt), zap.Error(err))
			return "", err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", fmt.Errorf("empty response from %s", c.model)
		}
		return text, nil
	},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(maxBackoff),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	return text, nil
}
