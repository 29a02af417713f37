package analyzer

import (
	"context"
	"fmt"

	"github.com/corvid-review/corvid/internal/modelrouter"
	"github.com/corvid-review/corvid/internal/suggestion"
)

// ModelRouter is the narrow routing capability RouterAugmenter needs, kept
// separate from *modelrouter.Router so analyzer never imports a concrete
// client adapter.
type ModelRouter interface {
	RouteJSON(ctx context.Context, prompt string, tier modelrouter.Tier, systemPrompt string, target interface{}, opts ...modelrouter.RequestOption) error
}

// RouterAugmenter adapts a ModelRouter onto the ModelAugmenter capability
// each analyzer closes over, routing every augmentation pass at the
// balanced tier. Analyzers never escalate their own LLM pass to
// high_quality; only the judge stage does.
type RouterAugmenter struct {
	Router ModelRouter
}

// NewRouterAugmenter returns a ModelAugmenter backed by router.
func NewRouterAugmenter(router ModelRouter) *RouterAugmenter {
	return &RouterAugmenter{Router: router}
}

type augmentResponse struct {
	Suggestions []suggestion.Suggestion `json:"suggestions"`
}

// Augment asks the model for additional findings in chunk beyond what the
// analyzer's static rules caught, using systemPrompt to frame the analyzer's
// specific concern (security/style/logic/pattern).
func (a *RouterAugmenter) Augment(ctx context.Context, chunk Chunk, rc Context, systemPrompt string) ([]suggestion.Suggestion, error) {
	prompt := fmt.Sprintf("File: %s (lines %d-%d)\n\n%s", chunk.FilePath, chunk.StartLine, chunk.EndLine, chunk.Content)

	var resp augmentResponse
	if err := a.Router.RouteJSON(ctx, prompt, modelrouter.Balanced, systemPrompt, &resp); err != nil {
		return nil, fmt.Errorf("analyzer: augment: %w", err)
	}
	for i := range resp.Suggestions {
		if resp.Suggestions[i].FilePath == "" {
			resp.Suggestions[i].FilePath = chunk.FilePath
		}
	}
	return resp.Suggestions, nil
}
