// Package analyzer defines the pluggable Analyzer capability and its typed
// registry: analyzers register under a validated name at startup and the
// workflow resolves the enabled set per review.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/corvid-review/corvid/internal/suggestion"
)

var (
	// ErrNotFound is returned by Registry.Get for an unregistered name.
	ErrNotFound = errors.New("analyzer: not found")
	// ErrDuplicateName is returned by Register for an already-registered name.
	ErrDuplicateName = errors.New("analyzer: duplicate name")
	// ErrInvalidName is returned by Register for a malformed name.
	ErrInvalidName = errors.New("analyzer: invalid name")
)

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Chunk is a contiguous hunk of one file's diff, the unit of analyzer input.
type Chunk struct {
	FilePath  string
	StartLine int
	EndLine   int
	Content   string
	Language  string
}

// Context carries the read-only collaborators an analyzer may consult.
// Analyzers must not retain references to a Context across calls.
type Context struct {
	AgentsMD        string
	Config          ReviewConfig
	ChunkIndex      int
	TotalChunks     int
}

// ReviewConfig is the subset of the effective review configuration analyzers
// need; it is a narrow view over the workflow's full ReviewConfig.
type ReviewConfig struct {
	EnableAgents map[string]bool
	CustomRules  map[string]any
}

// Analyzer produces findings from a chunk. Implementations must be safe for
// concurrent use across different chunks (the workflow engine fans out one
// call per enabled analyzer per chunk).
type Analyzer interface {
	Name() string
	Priority() int
	ShouldAnalyze(chunk Chunk) bool
	Analyze(ctx context.Context, chunk Chunk, rc Context) ([]suggestion.Suggestion, error)
}

// Registry holds the enabled analyzer set, keyed by name.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]Analyzer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{analyzers: make(map[string]Analyzer)}
}

// Register adds a to the registry. It rejects a nil analyzer, an empty or
// malformed name, and a duplicate name — these are programming errors meant
// to be caught at startup, so Register returns rather than panics (unlike
// the CLI-subprocess registry this one is modeled on, which panics; Corvid's
// registry is built at service-startup time from config, where a returned
// error composes better with config validation).
func (r *Registry) Register(a Analyzer) error {
	if a == nil {
		return fmt.Errorf("analyzer: cannot register nil analyzer")
	}
	name := a.Name()
	if name == "" || !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.analyzers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.analyzers[name] = a
	return nil
}

// Get returns the analyzer registered under name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.analyzers[name]
	return ok
}

// Enabled returns every registered analyzer whose name is enabled in cfg
// (missing from the map defaults to enabled, matching the workflow's
// "install defaults for missing config" ingest behavior), sorted by
// ascending priority (lower value = higher priority, runs first in any
// priority-ordered presentation; fan-out itself is unordered/concurrent).
func (r *Registry) Enabled(cfg ReviewConfig) []Analyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Analyzer
	for name, a := range r.analyzers {
		if enabled, ok := cfg.EnableAgents[name]; ok && !enabled {
			continue
		}
		out = append(out, a)
	}

	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && out[j-1].Priority() > out[j].Priority() {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}
