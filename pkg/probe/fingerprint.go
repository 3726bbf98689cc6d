package probe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint derives the deterministic cache key for an invocation. Two
// invocations with the same probe, model identity, and configuration hash
// identically regardless of configuration map iteration order.
func Fingerprint(probeID string, target ModelTarget) string {
	h := sha256.New()
	fmt.Fprintf(h, "probe=%s\x00model=%s\x00provider=%s\x00", probeID, target.Name, target.Provider)

	keys := make([]string, 0, len(target.Config))
	for k := range target.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		// NUL separators keep ("ab","c") and ("a","bc") from colliding
		fmt.Fprintf(h, "%s\x00%s\x00", k, target.Config[k])
	}

	return hex.EncodeToString(h.Sum(nil))
}

// ModelKey identifies a model for rate limiting and circuit breaker scoping
func ModelKey(target ModelTarget) string {
	return strings.ToLower(target.Provider + ":" + target.Name)
}
