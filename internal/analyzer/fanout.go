package analyzer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/corvid-review/corvid/internal/suggestion"
)

// Result pairs one analyzer's output with its name for per-analyzer metrics
// and raw-output bookkeeping.
type Result struct {
	AnalyzerName string
	Suggestions  []suggestion.Suggestion
	Err          error
}

// RunAll fans out chunk to every analyzer concurrently with
// gather-with-exceptions semantics: every goroutine always returns nil to
// the errgroup so one analyzer's failure never aborts the others, and a
// panicking or erroring analyzer's output is simply treated as empty
// (logged by the caller via Result.Err).
func RunAll(ctx context.Context, analyzers []Analyzer, chunk Chunk, rc Context, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]Result, len(analyzers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex

	for i, a := range analyzers {
		i, a := i, a
		g.Go(func() error {
			if !a.ShouldAnalyze(chunk) {
				mu.Lock()
				results[i] = Result{AnalyzerName: a.Name()}
				mu.Unlock()
				return nil
			}

			suggestions, err := safeAnalyze(gctx, a, chunk, rc)

			mu.Lock()
			results[i] = Result{AnalyzerName: a.Name(), Suggestions: suggestions, Err: err}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // errors are carried per-result; the group itself never fails
	return results
}

// safeAnalyze recovers a panicking analyzer into an error so one bad
// analyzer can never take down the whole fan-out, matching the workflow
// stage contract: "any analyzer throwing is logged and its output treated
// as empty."
func safeAnalyze(ctx context.Context, a Analyzer, chunk Chunk, rc Context) (result []suggestion.Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = panicError{value: r}
		}
	}()
	return a.Analyze(ctx, chunk, rc)
}

type panicError struct{ value any }

func (p panicError) Error() string { return "analyzer panicked" }
