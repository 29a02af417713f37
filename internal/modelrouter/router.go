// Package modelrouter selects a model tier for a task and routes generation
// requests to a ModelClient. The tier table and selection rules are fixed;
// JSON responses are repaired centrally through internal/jsonutil rather
// than ad hoc per caller.
package modelrouter

import (
	"context"

	"github.com/corvid-review/corvid/internal/corverr"
	"github.com/corvid-review/corvid/internal/jsonutil"
)

// Tier names a model quality/cost tradeoff point.
type Tier string

const (
	Fast        Tier = "fast"
	Balanced    Tier = "balanced"
	HighQuality Tier = "high_quality"
)

// TierConfig is the fixed generation configuration for a Tier.
type TierConfig struct {
	ModelName   string
	MaxTokens   int
	Temperature float64
}

// tiers is the fixed tier table; callers never override model_name.
var tiers = map[Tier]TierConfig{
	Fast:        {ModelName: "claude-haiku-4-5", MaxTokens: 2048, Temperature: 0.1},
	Balanced:    {ModelName: "claude-sonnet-4-5", MaxTokens: 4096, Temperature: 0.1},
	HighQuality: {ModelName: "claude-opus-4-5", MaxTokens: 8192, Temperature: 0.0},
}

// ModelClient is the narrow capability a Router needs from a model provider.
// Concrete adapters (e.g. the Anthropic SDK adapter) implement retries,
// circuit breaking, and transport-error taxonomy mapping internally; Router
// itself is transport-agnostic.
type ModelClient interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is a single generation call.
type Request struct {
	Prompt       string
	SystemPrompt string
	ModelName    string
	MaxTokens    int
	Temperature  float64
}

// Router routes requests to the tier-appropriate model configuration.
type Router struct {
	Client ModelClient
}

// New returns a Router backed by client.
func New(client ModelClient) *Router {
	return &Router{Client: client}
}

// RequestOption overrides one generation parameter for a single call. The
// tier table itself is never mutated; options apply to the per-call Request
// after the tier's defaults are copied in.
type RequestOption func(*Request)

// WithMaxTokens overrides the tier's max token count for one call.
func WithMaxTokens(n int) RequestOption { return func(r *Request) { r.MaxTokens = n } }

// WithTemperature overrides the tier's temperature for one call.
func WithTemperature(t float64) RequestOption { return func(r *Request) { r.Temperature = t } }

func (r *Router) requestFor(prompt, systemPrompt string, tier Tier, opts []RequestOption) Request {
	cfg, ok := tiers[tier]
	if !ok {
		cfg = tiers[Balanced]
	}
	req := Request{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		ModelName:    cfg.ModelName,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// Route sends prompt to the model configured for tier and returns the raw
// text response.
func (r *Router) Route(ctx context.Context, prompt string, tier Tier, systemPrompt string, opts ...RequestOption) (string, error) {
	return r.Client.Generate(ctx, r.requestFor(prompt, systemPrompt, tier, opts))
}

// RouteJSON sends prompt (with an appended JSON-only instruction) and
// unmarshals the first valid JSON value found in the response into target,
// centralizing JSON repair in jsonutil rather than duplicating regex
// extraction at every call site.
func (r *Router) RouteJSON(ctx context.Context, prompt string, tier Tier, systemPrompt string, target interface{}, opts ...RequestOption) error {
	jsonPrompt := prompt + "\n\nYou must respond with valid JSON only. Do not include markdown formatting, explanations, or any text outside the JSON."
	resp, err := r.Client.Generate(ctx, r.requestFor(jsonPrompt, systemPrompt, tier, opts))
	if err != nil {
		return err
	}
	if err := jsonutil.ExtractInto(resp, target); err != nil {
		return corverr.New(corverr.Parse, err)
	}
	return nil
}

// BatchRoute fans out prompts concurrently and returns only the responses
// that succeeded, in no particular order. Failures are dropped, not
// reported; callers needing per-prompt errors should Route individually.
func (r *Router) BatchRoute(ctx context.Context, prompts []string, tier Tier, systemPrompt string) []string {
	type out struct {
		text string
		ok   bool
	}
	results := make([]out, len(prompts))
	done := make(chan int, len(prompts))

	for i, p := range prompts {
		i, p := i, p
		go func() {
			text, err := r.Route(ctx, p, tier, systemPrompt)
			results[i] = out{text: text, ok: err == nil}
			done <- i
		}()
	}
	for range prompts {
		<-done
	}

	var successes []string
	for _, o := range results {
		if o.ok {
			successes = append(successes, o.text)
		}
	}
	return successes
}

// SelectTier picks a tier from task characteristics: security tasks always
// get HighQuality; low-complexity/low-priority tasks get Fast; high
// complexity or high priority gets HighQuality; everything else is Balanced.
func SelectTier(taskType, complexity, priority string) Tier {
	if taskType == "security" {
		return HighQuality
	}
	if complexity == "low" && priority == "low" {
		return Fast
	}
	if complexity == "high" || priority == "high" {
		return HighQuality
	}
	return Balanced
}
