// Package rules implements the team-scoped rule evaluation engine: dotted
// field path extraction, the 13-operator comparison language, recursive
// condition/group evaluation, document validation, and the TTL-cached
// per-team rule store behind the Engine orchestrator.
package rules

import (
	"strconv"
	"strings"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Field path extraction over normalized events.
 *
 * A path like "ticket.priority.name" selects the "ticket" namespace, then
 * folds over the remaining segments: map lookup for objects, non-negative
 * integer index for lists. Extraction is a total function over any path
 * string: the moment a segment is missing, an index is out of range, or a
 * scalar is indexed further, it reports absence instead of failing.
 *
 * Absence is a first-class outcome (found=false), not an error. Operator
 * dispatch needs to distinguish "field missing" from "field null" only in
 * that both fail every positive operator; negative operators match either.
 */

// Extract resolves a dotted path against the event's namespace tree.
// found=false marks absence; Extract never fails for missing data.
func Extract(path string, ev *types.Event) (value any, found bool) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil, false
	}

	current, ok := ev.Section(segments[0])
	if !ok {
		return nil, false
	}

	for _, seg := range segments[1:] {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			// Scalar (or nil) but the path continues.
			return nil, false
		}
	}

	return current, true
}
