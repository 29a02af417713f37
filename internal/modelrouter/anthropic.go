package modelrouter

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"github.com/corvid-review/corvid/internal/corverr"
)

// AnthropicClient is the concrete ModelClient adapter backing Corvid's
// production model router. It wraps the official SDK client with the retry
// state machine and a circuit breaker so a struggling provider degrades
// gracefully instead of piling up blocked goroutines.
type AnthropicClient struct {
	sdk     anthropic.Client
	breaker *gobreaker.CircuitBreaker
	retry   RetryConfig
}

// NewAnthropicClient builds an adapter using apiKey (or ANTHROPIC_API_KEY if
// empty, per the SDK's default option resolution).
func NewAnthropicClient(apiKey string) *AnthropicClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	settings := gobreaker.Settings{
		Name:        "anthropic",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &AnthropicClient{
		sdk:     anthropic.NewClient(opts...),
		breaker: gobreaker.NewCircuitBreaker(settings),
		retry:   DefaultRetryConfig(),
	}
}

// Generate implements ModelClient, retrying transient failures and tripping
// the breaker when the provider is persistently unavailable.
func (c *AnthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	text, err := Do(ctx, c.retry, func(attempt int) (string, error) {
		out, cbErr := c.breaker.Execute(func() (interface{}, error) {
			return c.call(ctx, req)
		})
		if cbErr != nil {
			return "", classifyError(cbErr)
		}
		return out.(string), nil
	})
	return text, err
}

func (c *AnthropicClient) call(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.ModelName),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// classifyError maps a raw SDK error onto the taxonomy so Do's retry
// selection can branch without reaching into SDK internals at every call
// site.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return corverr.New(corverr.RateLimit, err)
		case apiErr.StatusCode >= 500:
			return corverr.New(corverr.Transport, err)
		default:
			// Remaining 4xx responses (bad request, auth, not found) cannot
			// succeed on retry.
			return corverr.New(corverr.ModelClientFail, err)
		}
	}
	return corverr.New(corverr.Transport, err)
}
