package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Rule document validation.
 *
 * Statically checks a candidate document before it is accepted: structural
 * requirements (team_id, rules list, per-rule name/hook_types), semantic
 * requirements (operator and logic tokens, supported field paths), and
 * non-fatal business_hours checks.
 *
 * Validation is a pure function and never short-circuits: every error and
 * warning across the whole document is accumulated before returning, so an
 * author sees all problems in one pass.
 *
 * The supported field set is closed and enumerable. An unrecognized field is
 * an error, not silently ignored - a typoed path would otherwise resolve to
 * absent forever and the rule would never fire. The free-form context.* and
 * routing_hints.* namespaces are exempt by prefix.
 */

// ValidationResult collects the findings of one Validate call.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// supportedFields is the closed set of dotted paths the rule language may
// reference. Array roots are listed; indexed access into them is implied.
var supportedFields = map[string]bool{
	"event.id":                             true,
	"event.type":                           true,
	"event.timestamp":                      true,
	"event.classification.category":        true,
	"event.classification.urgency":         true,
	"event.classification.significance":    true,
	"event.classification.keywords":        true,
	"event.classification.affected_teams":  true,
	"ticket.key":                           true,
	"ticket.summary":                       true,
	"ticket.description":                   true,
	"ticket.status.name":                   true,
	"ticket.priority.name":                 true,
	"ticket.issue_type.name":               true,
	"ticket.project.key":                   true,
	"ticket.assignee.name":                 true,
	"ticket.assignee.display_name":         true,
	"ticket.assignee.email":                true,
	"ticket.reporter.name":                 true,
	"ticket.reporter.display_name":         true,
	"ticket.labels":                        true,
	"ticket.components":                    true,
	"ticket.created":                       true,
	"ticket.updated":                       true,
	"stakeholders.roles":                   true,
	"stakeholders.user_ids":                true,
	"stakeholders.display_names":           true,
}

// freeformPrefixes exempt the free-form namespaces from the closed field set.
var freeformPrefixes = []string{"context.", "routing_hints."}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Validate statically checks a candidate rule document. Pure function: no
// caching, no mutation, accumulates every finding before returning.
func Validate(doc map[string]any) ValidationResult {
	var res ValidationResult

	if _, ok := doc["team_id"].(string); !ok {
		res.Errors = append(res.Errors, "team_id is required and must be a string")
	}
	if _, ok := doc["team_name"].(string); !ok {
		res.Warnings = append(res.Warnings, "team_name is missing")
	}

	rawRules, ok := doc["rules"].([]any)
	if !ok {
		res.Errors = append(res.Errors, "rules is required and must be a list")
	}
	for i, raw := range rawRules {
		m, isMap := raw.(map[string]any)
		if !isMap {
			res.Errors = append(res.Errors, fmt.Sprintf("rule %d: must be a mapping", i))
			continue
		}
		validateRule(i, m, &res)
	}

	if bh, ok := doc["business_hours"].(map[string]any); ok {
		validateBusinessHours(bh, &res)
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func validateRule(idx int, m map[string]any, res *ValidationResult) {
	name, _ := m["name"].(string)
	label := name
	if label == "" {
		label = fmt.Sprintf("rule %d", idx)
		res.Errors = append(res.Errors, fmt.Sprintf("rule %d: name is required", idx))
	}

	if _, ok := m["hook_types"].([]any); !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: hook_types is required and must be a list", label))
	}
	if v, present := m["priority"]; present {
		if !isInteger(v) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: priority must be an integer", label))
		}
	}
	if v, present := m["enabled"]; present {
		if _, ok := v.(bool); !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: enabled must be a boolean", label))
		}
	}

	if cond, ok := m["conditions"].(map[string]any); ok {
		validateNode(label, cond, res)
	} else if _, present := m["conditions"]; present {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: conditions must be a mapping", label))
	}
}

// validateNode recursively checks one expression node (condition or group).
func validateNode(label string, m map[string]any, res *ValidationResult) {
	if _, isLeaf := m["field"]; isLeaf {
		field, _ := m["field"].(string)
		if field == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: condition field is required", label))
		} else if !fieldSupported(field) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: unsupported field %q", label, field))
		}
		if _, present := m["value"]; !present {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: condition on %q has no value", label, field))
		}
		if op, present := m["operator"]; present {
			if !operatorSupported(op) {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: unknown operator %v", label, op))
			}
		}
		return
	}

	if logic, present := m["logic"]; present {
		s, ok := logic.(string)
		if !ok || !logicSupported(types.Logic(strings.ToLower(s))) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: logic must be one of and|or|not, got %v", label, logic))
		}
	}

	children, _ := m["conditions"].([]any)
	if logic, _ := m["logic"].(string); strings.EqualFold(logic, string(types.LogicNot)) && len(children) > 1 {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%s: NOT group has %d children; only the first is negated, the rest are ignored", label, len(children)))
	}
	for i, raw := range children {
		cm, ok := raw.(map[string]any)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: condition %d must be a mapping", label, i))
			continue
		}
		validateNode(label, cm, res)
	}
}

func validateBusinessHours(bh map[string]any, res *ValidationResult) {
	for _, key := range []string{"start", "end"} {
		s, ok := bh[key].(string)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("business_hours.%s is missing", key))
			continue
		}
		if _, err := time.Parse("15:04", s); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("business_hours.%s %q is not HH:MM", key, s))
		}
	}

	days, ok := bh["days"].([]any)
	if !ok {
		res.Warnings = append(res.Warnings, "business_hours.days must be a list of weekday names")
		return
	}
	for _, raw := range days {
		day, _ := raw.(string)
		if !weekdays[strings.ToLower(day)] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("business_hours.days has unrecognized entry %v", raw))
		}
	}
}

func fieldSupported(field string) bool {
	if supportedFields[field] {
		return true
	}
	for _, prefix := range freeformPrefixes {
		if strings.HasPrefix(field, prefix) {
			return true
		}
	}
	// Indexed access into a listed array root, e.g. stakeholders.user_ids.0.
	if i := strings.LastIndex(field, "."); i > 0 {
		if isIndexSegment(field[i+1:]) && supportedFields[field[:i]] {
			return true
		}
	}
	return false
}

func isIndexSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func operatorSupported(op any) bool {
	s, ok := op.(string)
	if !ok {
		return false
	}
	for _, known := range types.Operators {
		if types.Operator(s) == known {
			return true
		}
	}
	return false
}

func logicSupported(l types.Logic) bool {
	switch l {
	case types.LogicAnd, types.LogicOr, types.LogicNot:
		return true
	default:
		return false
	}
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int64:
		return true
	default:
		return false
	}
}
