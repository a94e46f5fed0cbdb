// Package ai wraps the Gemini API for data enrichment: recipe and
// ingredient extraction, nutrition estimates, restaurant discovery and
// geocoding. Every call is rate limited, guarded by a circuit breaker and
// retried while the provider reports overload.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the slice of the genai API the client uses.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Recorder receives call outcomes, typically the metrics collector.
type Recorder interface {
	ObserveAICall(operation, outcome string)
	ObserveAIRetry(operation string)
}

type Config struct {
	Model         string
	RetryAttempts int
	RetryBackoff  time.Duration
	// RatePerMinute caps outgoing calls. Zero disables the limit.
	RatePerMinute int
	Timeout       time.Duration
	City          string
}

// Error is a failed AI call. Message is the provider's raw text.
type Error struct {
	Op         string
	Message    string
	Overloaded bool
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ai %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrEmptyResponse is returned when the model answers without usable text.
var ErrEmptyResponse = errors.New("empty response from model")

type Client struct {
	generator ContentGenerator
	config    Config
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	recorder  Recorder
	logger    *zap.Logger

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenAI creates the Gemini models client for an API key.
func NewGenAI(ctx context.Context, apiKey string) (*genai.Models, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client.Models, nil
}

func NewClient(generator ContentGenerator, config Config, recorder Recorder, logger *zap.Logger) *Client {
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.RetryAttempts < 1 {
		config.RetryAttempts = 1
	}
	if config.City == "" {
		config.City = "São Paulo"
	}

	limit := rate.Inf
	burst := 1
	if config.RatePerMinute > 0 {
		limit = rate.Limit(float64(config.RatePerMinute) / 60)
		burst = config.RatePerMinute
	}

	c := &Client{
		generator: generator,
		config:    config,
		limiter:   rate.NewLimiter(limit, burst),
		recorder:  recorder,
		logger:    logger,
		sleep:     sleepContext,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Only overload errors count as breaker failures.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsOverloaded(err)
		},
	})
	return c
}

// generate runs one logical call, retrying overload errors with a linear
// backoff of attempt × RetryBackoff.
func (c *Client) generate(ctx context.Context, op string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			c.observe(op, "canceled")
			return "", &Error{Op: op, Message: err.Error(), Err: err}
		}

		text, err := c.call(ctx, contents, config)
		if err == nil {
			c.observe(op, "ok")
			return text, nil
		}

		overloaded := IsOverloaded(err)
		if !overloaded || attempt >= c.config.RetryAttempts {
			outcome := "error"
			if overloaded {
				outcome = "overloaded"
			}
			c.observe(op, outcome)
			return "", &Error{Op: op, Message: providerMessage(err), Overloaded: overloaded, Err: err}
		}

		wait := time.Duration(attempt) * c.config.RetryBackoff
		c.logger.Warn("model overloaded, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if c.recorder != nil {
			c.recorder.ObserveAIRetry(op)
		}
		if err := c.sleep(ctx, wait); err != nil {
			c.observe(op, "canceled")
			return "", &Error{Op: op, Message: err.Error(), Err: err}
		}
	}
}

func (c *Client) call(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.generator.GenerateContent(ctx, c.config.Model, contents, config)
		if err != nil {
			return nil, err
		}
		return resp.Text(), nil
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.(string))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) observe(op, outcome string) {
	if c.recorder != nil {
		c.recorder.ObserveAICall(op, outcome)
	}
}

// IsOverloaded reports whether err means the provider is temporarily out
// of capacity. An open circuit breaker counts as overload.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Overloaded
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusServiceUnavailable || apiErr.Code == http.StatusTooManyRequests {
			return true
		}
		if apiErr.Status == "UNAVAILABLE" || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "resource_exhausted")
}

// providerMessage extracts the provider's own text from err.
func providerMessage(err error) string {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
