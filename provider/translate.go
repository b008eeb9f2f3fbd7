package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemDelimiter separates hoisted system message contents when a backend
// keeps the system prompt in a single dedicated field.
const SystemDelimiter = "\n\n"

// SplitSystem extracts system-role messages for backends with a dedicated
// system field. The first system message's content becomes the field
// value; every later system message is appended with SystemDelimiter
// instead of being dropped or re-inserted mid-conversation. The returned
// slice holds the remaining messages in their original relative order.
func SplitSystem(msgs []Message) (system string, rest []Message) {
	var parts []string
	rest = make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, SystemDelimiter), rest
}

// ParseToolArgs decodes a backend's raw argument payload. Empty input
// yields an empty argument map. A payload that is not a JSON object
// yields nil, which marks the call as unparsable without failing the
// surrounding response.
func ParseToolArgs(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil
	}
	if args == nil {
		// Literal JSON null.
		return map[string]any{}
	}
	return args
}

// SynthCallID derives a stable call ID from the call's position in its
// response for backends that do not assign IDs.
func SynthCallID(i int) string {
	return fmt.Sprintf("call_%d", i)
}

// EncodeToolArgs re-serializes parsed arguments for backends whose wire
// format carries them as a JSON string. Nil arguments encode as an empty
// object.
func EncodeToolArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// MergeParams injects pass-through parameters into an encoded wire
// request at the JSON level, so arbitrary backend knobs survive the typed
// request structs. Keys in extra overwrite encoded fields of the same
// name. Verbatim and unvalidated.
func MergeParams(body []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return body, nil
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decoding request body: %w", err)
	}
	for k, v := range extra {
		m[k] = v
	}

	merged, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding merged body: %w", err)
	}
	return merged, nil
}
