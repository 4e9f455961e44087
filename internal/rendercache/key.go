package rendercache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// volatileKeys never participate in cache keys: they change between
// logically identical requests.
var volatileKeys = map[string]struct{}{
	"seed":       {},
	"timestamp":  {},
	"_timestamp": {},
}

// DeriveKey computes the cache key for a component id and parameter map.
// Volatile keys are stripped and the remainder is serialized canonically
// (encoding/json emits map keys in sorted order), so logically equal
// requests always map to the same key regardless of insertion order. The
// result is a 128-bit hex string. Pure: no I/O, never fails.
func DeriveKey(componentID string, params map[string]any) string {
	filtered := make(map[string]any, len(params))
	for k, v := range params {
		if _, volatile := volatileKeys[k]; volatile {
			continue
		}
		filtered[k] = v
	}

	canonical, err := json.Marshal(filtered)
	if err != nil {
		// Only unmarshalable values (channels, funcs) hit this; parameter
		// maps come from decoded JSON so fall back to the empty document.
		canonical = []byte("{}")
	}

	h := sha256.New()
	h.Write([]byte(componentID))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)[:16])
}
