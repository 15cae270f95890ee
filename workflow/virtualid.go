package workflow

import (
	"fmt"
	"regexp"
)

// virtualIDPattern matches "<originalId>_parallel_<parallelId>_iteration_<N>"
// (spec.md §6, wire format). The original id and parallel id may themselves
// contain underscores, so the pattern is lazy on the first group (the
// original id ends at the first "_parallel_") and greedy on the second,
// anchored on the final numeric iteration.
var virtualIDPattern = regexp.MustCompile(`^(.+?)_parallel_(.+)_iteration_(\d+)$`)

// GenerateVirtualID builds the effective id used to key blockStates and
// executedBlocks for one iteration of a block inside a parallel.
func GenerateVirtualID(originalID, parallelID string, iteration int) string {
	return fmt.Sprintf("%s_parallel_%s_iteration_%d", originalID, parallelID, iteration)
}

// IsVirtualID reports whether id was produced by GenerateVirtualID.
func IsVirtualID(id string) bool {
	return virtualIDPattern.MatchString(id)
}

// ExtractOriginalID returns the original block id encoded in a virtual id,
// or id itself (unchanged) if id is not a virtual id.
func ExtractOriginalID(id string) string {
	m := virtualIDPattern.FindStringSubmatch(id)
	if m == nil {
		return id
	}
	return m[1]
}

// ParseVirtualID decodes a virtual id into its three components. ok is
// false if id is not a virtual id.
func ParseVirtualID(id string) (originalID, parallelID string, iteration int, ok bool) {
	m := virtualIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", "", 0, false
	}
	var n int
	_, err := fmt.Sscanf(m[3], "%d", &n)
	if err != nil {
		return "", "", 0, false
	}
	return m[1], m[2], n, true
}
