package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/corvid-review/corvid/internal/workflow"
)

// reviewStateClass is the _class tag used for workflow.ReviewState, the one
// channel value whose Go type can't be recovered from a plain
// map[string]any decode (everything else on WorkflowState is already a
// concretely typed field).
const reviewStateClass = "ReviewState"

// Encode converts a workflow.WorkflowState into its checkpoint Record,
// tagging the one dynamically-typed metadata entry (the review_state
// workflow.ReviewState payload) so Decode can recover its concrete type.
func Encode(ws *workflow.WorkflowState) (*Record, error) {
	if ws == nil {
		return nil, fmt.Errorf("checkpoint: encode: nil workflow state")
	}

	values := make(map[string]json.RawMessage, len(ws.Metadata)+3)

	workflowName, err := json.Marshal(ws.WorkflowName)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode workflow_name: %w", err)
	}
	values["workflow_name"] = workflowName

	currentStep, err := json.Marshal(ws.CurrentStep)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode current_step: %w", err)
	}
	values["current_step"] = currentStep

	stepHistory, err := json.Marshal(ws.StepHistory)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode step_history: %w", err)
	}
	values["step_history"] = stepHistory

	createdAt, err := tagTime(ws.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode created_at: %w", err)
	}
	values["created_at"] = createdAt

	for key, val := range ws.Metadata {
		if rs, ok := val.(*workflow.ReviewState); ok {
			tagged, err := tagClass(reviewStateClass, rs)
			if err != nil {
				return nil, fmt.Errorf("checkpoint: encode metadata %q: %w", key, err)
			}
			values[key] = tagged
			continue
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: encode metadata %q: %w", key, err)
		}
		values[key] = raw
	}

	now := time.Now().UTC()
	return &Record{
		V:               schemaVersion,
		Ts:              now.Format(time.RFC3339Nano),
		ID:              ws.ID,
		ChannelValues:   values,
		ChannelVersions: map[string]int{"current_step": len(ws.StepHistory)},
		VersionsSeen:    map[string]int{},
		PendingSends:    []json.RawMessage{},
		UpdatedAt:       now.Format(time.RFC3339Nano),
	}, nil
}

// Decode rebuilds a workflow.WorkflowState from a checkpoint Record. Decode
// is the resume-time counterpart of Encode: it recovers the review_state
// payload's concrete *workflow.ReviewState type from its tagged envelope,
// and any other metadata entry decodes via decodeAny (a tagged value of an
// unrecognized class falls back to its raw payload rather than failing the
// load).
func Decode(rec *Record) (*workflow.WorkflowState, error) {
	if rec == nil {
		return nil, fmt.Errorf("checkpoint: decode: nil record")
	}

	ws := workflow.NewWorkflowState(rec.ID, "", "")
	ws.Metadata = map[string]any{}

	if raw, ok := rec.ChannelValues["workflow_name"]; ok {
		if err := json.Unmarshal(raw, &ws.WorkflowName); err != nil {
			return nil, fmt.Errorf("checkpoint: decode workflow_name: %w", err)
		}
	}
	if raw, ok := rec.ChannelValues["current_step"]; ok {
		if err := json.Unmarshal(raw, &ws.CurrentStep); err != nil {
			return nil, fmt.Errorf("checkpoint: decode current_step: %w", err)
		}
	}
	if raw, ok := rec.ChannelValues["step_history"]; ok {
		if err := json.Unmarshal(raw, &ws.StepHistory); err != nil {
			return nil, fmt.Errorf("checkpoint: decode step_history: %w", err)
		}
	}
	if raw, ok := rec.ChannelValues["created_at"]; ok {
		if t, found, err := untagTime(raw); err != nil {
			return nil, fmt.Errorf("checkpoint: decode created_at: %w", err)
		} else if found {
			ws.CreatedAt = t
		}
	}
	if updated, err := time.Parse(time.RFC3339Nano, rec.UpdatedAt); err == nil {
		ws.UpdatedAt = updated
	}

	for key, raw := range rec.ChannelValues {
		switch key {
		case "workflow_name", "current_step", "step_history", "created_at":
			continue
		case "review_state":
			rs := &workflow.ReviewState{}
			found, err := untagClass(raw, reviewStateClass, rs)
			if err != nil {
				return nil, fmt.Errorf("checkpoint: decode review_state: %w", err)
			}
			if found {
				ws.Metadata[key] = rs
				continue
			}
			fallthrough
		default:
			v, err := decodeAny(raw)
			if err != nil {
				return nil, fmt.Errorf("checkpoint: decode metadata %q: %w", key, err)
			}
			ws.Metadata[key] = v
		}
	}

	return ws, nil
}
