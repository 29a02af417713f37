package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// sanitizeID maps a workflow/review id onto a safe filename component:
// every rune outside [a-zA-Z0-9_-] is replaced with a single underscore, one
// underscore per offending rune (not collapsed), so two distinct special
// characters never collide into the same sanitized output... except when
// they legitimately should (e.g. "wf:2024/01" and "wf_2024_01" sanitize
// identically, which is the whole point: the filesystem only ever sees the
// sanitized form).
func sanitizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// StatusFromState derives a coarse human-readable status from a
// WorkflowState, used by the dashboard and `corvid review --dry-run`
// listings without re-deriving the engine's transition logic.
func StatusFromState(ws *WorkflowState) string {
	switch ws.CurrentStep {
	case StepDone:
		return "completed"
	case StepFailed:
		return "failed"
	}
	if last := ws.LastStep(); last != nil {
		if last.Event == EventFailure {
			return "failed"
		}
		return "running"
	}
	return "interrupted"
}

// RunSummary is the lightweight projection StateStore.List returns, cheap
// enough to build for every run on disk without loading full Metadata
// payloads (which may carry an entire ReviewState).
type RunSummary struct {
	ID           string    `json:"id"`
	WorkflowName string    `json:"workflow_name"`
	CurrentStep  string    `json:"current_step"`
	Status       string    `json:"status"`
	StepCount    int       `json:"step_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StateStore persists WorkflowState snapshots as indented JSON files on
// disk, one file per run, keyed by a sanitized run id. It is the local,
// filesystem-backed Checkpointer used by the ad-hoc `corvid review` command;
// the service's webhook-driven reviews use internal/checkpoint's
// Postgres-backed store instead, which implements the same Checkpointer
// interface.
type StateStore struct {
	dir string
	mu  sync.Mutex
}

// NewStateStore returns a StateStore rooted at dir, creating it (and any
// missing parents) if necessary.
func NewStateStore(dir string) (*StateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workflow: creating state store directory %s: %w", dir, err)
	}
	return &StateStore{dir: dir}, nil
}

func (s *StateStore) path(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".json")
}

// Save writes ws to disk via a temp-file-then-rename so a concurrent reader
// (or a crash mid-write) never observes a partially written file. Implements
// Checkpointer.
func (s *StateStore) Save(ws *WorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("workflow: marshaling state %q: %w", ws.ID, err)
	}

	final := s.path(ws.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("workflow: writing state %q: %w", ws.ID, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("workflow: committing state %q: %w", ws.ID, err)
	}
	return nil
}

// Load reads the WorkflowState saved under id. Returns an error containing
// "not found" when no such run exists.
func (s *StateStore) Load(id string) (*WorkflowState, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workflow: run %q not found", id)
		}
		return nil, fmt.Errorf("workflow: reading run %q: %w", id, err)
	}
	var ws WorkflowState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("workflow: run %q: corrupt state file: %w", id, err)
	}
	return &ws, nil
}

// Delete removes the saved run for id. Returns an error containing "not
// found" when no such run exists.
func (s *StateStore) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("workflow: run %q not found", id)
		}
		return fmt.Errorf("workflow: deleting run %q: %w", id, err)
	}
	return nil
}

// List returns a RunSummary for every valid run on disk, most recently
// updated first. Subdirectories, ".tmp" files, and files that fail to parse
// as a WorkflowState are silently skipped (the store never fails a listing
// over one bad entry).
func (s *StateStore) List() ([]RunSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunSummary{}, nil
		}
		return nil, fmt.Errorf("workflow: listing state store: %w", err)
	}

	summaries := []RunSummary{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.tmp") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var ws WorkflowState
		if err := json.Unmarshal(data, &ws); err != nil {
			continue
		}

		summaries = append(summaries, RunSummary{
			ID:           ws.ID,
			WorkflowName: ws.WorkflowName,
			CurrentStep:  ws.CurrentStep,
			Status:       StatusFromState(&ws),
			StepCount:    len(ws.StepHistory),
			UpdatedAt:    ws.UpdatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// LatestRun returns the full WorkflowState for the most recently updated
// run, or nil if the store holds no runs.
func (s *StateStore) LatestRun() (*WorkflowState, error) {
	summaries, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return s.Load(summaries[0].ID)
}
