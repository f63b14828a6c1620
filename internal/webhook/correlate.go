package webhook

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// threadIDPrefix tags webhook-derived thread ids so they are recognizable in
// logs and in the conversation store.
const threadIDPrefix = "webhook-"

// GenerateThreadID derives a deterministic thread id from payload content.
// Identical payloads always map to the same id regardless of key order, so
// retries of one webhook — and repeated deliveries of the same alert — land
// in the same conversation and build on prior investigation.
func GenerateThreadID(payload map[string]interface{}) string {
	canonical, err := json.Marshal(canonicalize(payload))
	if err != nil {
		// canonicalize stringifies anything unmarshalable, so this is
		// unreachable for JSON-decoded payloads; fall back regardless.
		canonical = []byte(fmt.Sprint(payload))
	}
	sum := md5.Sum(canonical)
	return threadIDPrefix + hex.EncodeToString(sum[:])[:12]
}

// canonicalize produces a stable, always-serializable form of a payload:
// map keys are emitted in sorted order (encoding/json already guarantees
// this for maps) and values that cannot be marshaled are stringified.
func canonicalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]interface{}, len(val))
		for _, k := range keys {
			out[k] = canonicalize(val[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = canonicalize(item)
		}
		return out
	default:
		if _, err := json.Marshal(val); err != nil {
			return fmt.Sprint(val)
		}
		return val
	}
}
