// Package checkpoint implements the CheckpointStore capability: persisting
// a workflow.WorkflowState snapshot after every successful stage transition,
// keyed by review id ("thread id"), and resuming a review workflow at its
// recorded current step. Serialization uses a tagged checkpoint record: a
// document carrying channel_values whose entries that
// are user-defined types (ReviewState, time.Time) round-trip through a
// `{_type, _class, _data}` envelope rather than losing their Go type to a
// bare map[string]any during JSON decode.
package checkpoint

import (
	"encoding/json"
	"time"
)

// schemaVersion is the Record.V written by this package. Bump it if the
// channel_values layout changes in a way that breaks older checkpoints.
const schemaVersion = 1

const (
	// tagPydantic marks a tagged value whose _data is a JSON object
	// decodable into the named _class's Go type. The tag name stays
	// "pydantic" for wire compatibility with checkpoints written by earlier
	// deployments, even though the class it tags is a plain Go struct.
	tagPydantic = "pydantic"
	// tagDatetime marks a tagged value whose _data is an ISO-8601 string.
	tagDatetime = "datetime"
)

// TaggedValue is one entry of a Record's channel_values map, or an element
// of pending_sends, when the underlying value carries a type that plain
// JSON can't round-trip on its own.
type TaggedValue struct {
	Type  string          `json:"_type"`
	Class string          `json:"_class,omitempty"`
	Data  json.RawMessage `json:"_data"`
}

// Record is the document-store checkpoint value: a snapshot of one
// workflow run's full state, versioned and timestamped so a
// resuming process can tell a stale checkpoint from a fresh one.
type Record struct {
	V               int                        `json:"v"`
	Ts              string                     `json:"ts"`
	ID              string                     `json:"id"`
	ChannelValues   map[string]json.RawMessage `json:"channel_values"`
	ChannelVersions map[string]int             `json:"channel_versions"`
	VersionsSeen    map[string]int             `json:"versions_seen"`
	PendingSends    []json.RawMessage          `json:"pending_sends"`
	Metadata        map[string]any             `json:"metadata,omitempty"`
	UpdatedAt       string                     `json:"updated_at"`
}

// tagClass wraps v as a {_type: "pydantic", _class: class, _data: v}
// envelope so Decode can route it back to the correct Go type instead of a
// generic map[string]any.
func tagClass(class string, v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(TaggedValue{Type: tagPydantic, Class: class, Data: data})
}

// tagTime wraps t as a {_type: "datetime", _data: "<iso>"} envelope.
func tagTime(t time.Time) (json.RawMessage, error) {
	data, err := json.Marshal(t.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	return json.Marshal(TaggedValue{Type: tagDatetime, Data: data})
}

// untagClass decodes a channel_values entry previously produced by
// tagClass(class, ...) into dest. It returns ok=false (no error) when raw
// isn't a tagged value of the expected class, so callers can fall back to a
// plain decode.
func untagClass(raw json.RawMessage, class string, dest any) (ok bool, err error) {
	var tv TaggedValue
	if err := json.Unmarshal(raw, &tv); err != nil {
		return false, nil
	}
	if tv.Type != tagPydantic || tv.Class != class {
		return false, nil
	}
	if err := json.Unmarshal(tv.Data, dest); err != nil {
		return true, err
	}
	return true, nil
}

// untagTime decodes a channel_values entry previously produced by tagTime.
func untagTime(raw json.RawMessage) (time.Time, bool, error) {
	var tv TaggedValue
	if err := json.Unmarshal(raw, &tv); err != nil {
		return time.Time{}, false, nil
	}
	if tv.Type != tagDatetime {
		return time.Time{}, false, nil
	}
	var s string
	if err := json.Unmarshal(tv.Data, &s); err != nil {
		return time.Time{}, true, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, true, err
}

// decodeAny decodes raw into a generic interface{}, the fallback for
// channel_values entries that are either plain JSON scalars/objects or
// tagged values of a type this package doesn't recognize. Unknown tagged
// types deserialize to their raw payload rather than failing the load.
func decodeAny(raw json.RawMessage) (any, error) {
	var tv TaggedValue
	if err := json.Unmarshal(raw, &tv); err == nil && tv.Type != "" {
		switch tv.Type {
		case tagDatetime:
			var s string
			if err := json.Unmarshal(tv.Data, &s); err != nil {
				return nil, err
			}
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t, nil
			}
			return s, nil
		default:
			var payload any
			if err := json.Unmarshal(tv.Data, &payload); err != nil {
				return nil, err
			}
			return payload, nil
		}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
