package aggregate

import (
	"fmt"
	"sort"
)

/*
 * Conflict resolution.
 *
 * When multiple instances of the same source type disagree on a field, the
 * resolved value is either the confidence-weighted average (all contending
 * values numeric) or the value from the single highest-weighted instance.
 *
 * Instance weight = 0.4*base_weight(source_type) + 0.4*quality_overall +
 * 0.2*confidence. Base weights rank the trustworthiness of source kinds:
 * github/jira highest, custom lowest.
 *
 * Every field with more than one contending value produces a human-readable
 * conflict log entry.
 */

// Instance weight components.
const (
	ConflictWeightBase       = 0.4
	ConflictWeightQuality    = 0.4
	ConflictWeightConfidence = 0.2
)

// baseWeights ranks source kinds by inherent trustworthiness.
var baseWeights = map[SourceType]float64{
	SourceGitHub:      0.9,
	SourceJira:        0.9,
	SourceTeamMetrics: 0.75,
	SourceCalendar:    0.6,
	SourceCustom:      0.5,
}

// ResolveConflicts merges collected payloads into one resolved map per
// source type, logging every field that had contending values.
func ResolveConflicts(items []*CollectedData) (map[SourceType]map[string]any, []string) {
	resolved := map[SourceType]map[string]any{}
	var log []string

	grouped := map[SourceType][]*CollectedData{}
	var order []SourceType
	for _, item := range items {
		if _, seen := grouped[item.SourceType]; !seen {
			order = append(order, item.SourceType)
		}
		grouped[item.SourceType] = append(grouped[item.SourceType], item)
	}

	for _, st := range order {
		group := grouped[st]
		if len(group) == 1 {
			// Single instance: pass through unchanged.
			resolved[st] = group[0].Data
			continue
		}
		merged, entries := resolveGroup(st, group)
		resolved[st] = merged
		log = append(log, entries...)
	}

	return resolved, log
}

func resolveGroup(st SourceType, group []*CollectedData) (map[string]any, []string) {
	merged := map[string]any{}
	var log []string

	for _, field := range fieldUnion(group) {
		var contenders []*CollectedData
		for _, item := range group {
			if _, ok := item.Data[field]; ok {
				contenders = append(contenders, item)
			}
		}
		if len(contenders) == 1 {
			merged[field] = contenders[0].Data[field]
			continue
		}

		if avg, ok := weightedAverage(contenders, field); ok {
			merged[field] = avg
			log = append(log, fmt.Sprintf(
				"%s.%s: %d conflicting values resolved by confidence-weighted average", st, field, len(contenders)))
			continue
		}

		winner := heaviest(contenders)
		merged[field] = winner.Data[field]
		log = append(log, fmt.Sprintf(
			"%s.%s: %d conflicting values resolved in favor of %s", st, field, len(contenders), winner.SourceIdentifier))
	}

	return merged, log
}

// fieldUnion returns every field present in any instance, sorted for
// deterministic resolution order.
func fieldUnion(group []*CollectedData) []string {
	seen := map[string]bool{}
	for _, item := range group {
		for field := range item.Data {
			seen[field] = true
		}
	}
	fields := make([]string, 0, len(seen))
	for field := range seen {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// weightedAverage resolves a numeric conflict as sum(v*confidence)/sum(confidence).
// ok=false when any contending value is non-numeric.
func weightedAverage(contenders []*CollectedData, field string) (float64, bool) {
	var weightedSum, confidenceSum, plainSum float64
	for _, item := range contenders {
		v, ok := asFloat(item.Data[field])
		if !ok {
			return 0, false
		}
		weightedSum += v * item.Confidence
		confidenceSum += item.Confidence
		plainSum += v
	}
	if confidenceSum == 0 {
		return plainSum / float64(len(contenders)), true
	}
	return weightedSum / confidenceSum, true
}

// heaviest picks the instance with the highest combined weight.
func heaviest(contenders []*CollectedData) *CollectedData {
	best := contenders[0]
	bestWeight := instanceWeight(best)
	for _, item := range contenders[1:] {
		if w := instanceWeight(item); w > bestWeight {
			best, bestWeight = item, w
		}
	}
	return best
}

func instanceWeight(item *CollectedData) float64 {
	return ConflictWeightBase*baseWeights[item.SourceType] +
		ConflictWeightQuality*item.Quality.OverallScore +
		ConflictWeightConfidence*item.Confidence
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
