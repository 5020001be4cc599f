package rules

import (
	"fmt"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Document-to-types conversion.
 *
 * Parses the generic map tree produced by YAML decoding into typed
 * TeamRuleSet/Rule/Group structures. Parsing is shape-tolerant: defaults are
 * applied (operator=equals, case_sensitive=true, enabled=true, priority=0)
 * and unknown keys are ignored. Semantic checking is Validate's job; the
 * parser only fails on structurally unusable documents (missing team_id,
 * duplicate rule_id, non-map rules).
 *
 * Node discrimination: a map with a "field" key is a Condition leaf,
 * anything else is a Group. Groups default to AND logic.
 */

// ParseDocument converts a decoded rule document into a TeamRuleSet.
func ParseDocument(doc map[string]any) (*types.TeamRuleSet, error) {
	teamID := stringAt(doc, "team_id")
	if teamID == "" {
		return nil, fmt.Errorf("document has no team_id")
	}

	set := &types.TeamRuleSet{
		TeamID:          teamID,
		TeamName:        stringAt(doc, "team_name"),
		Enabled:         boolAt(doc, "enabled", true),
		Version:         stringAt(doc, "version"),
		LastUpdated:     stringAt(doc, "last_updated"),
		DefaultChannels: map[string]string{},
	}

	if defaults, ok := doc["default_channels"].(map[string]any); ok {
		for hook, ch := range defaults {
			if s, ok := ch.(string); ok {
				set.DefaultChannels[hook] = s
			}
		}
	}

	if bh, ok := doc["business_hours"].(map[string]any); ok {
		set.BusinessHours = &types.BusinessHours{
			Start: stringAt(bh, "start"),
			End:   stringAt(bh, "end"),
			Days:  stringListAt(bh, "days"),
		}
	}

	rawRules, _ := doc["rules"].([]any)
	seen := map[string]bool{}
	for i, raw := range rawRules {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("rule %d is not a mapping", i)
		}
		rule, err := parseRule(m)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if seen[rule.RuleID] {
			return nil, fmt.Errorf("duplicate rule_id %q", rule.RuleID)
		}
		seen[rule.RuleID] = true
		set.Rules = append(set.Rules, rule)
	}

	return set, nil
}

func parseRule(m map[string]any) (types.Rule, error) {
	rule := types.Rule{
		RuleID:      stringAt(m, "rule_id"),
		Name:        stringAt(m, "name"),
		Description: stringAt(m, "description"),
		HookTypes:   stringListAt(m, "hook_types"),
		Enabled:     boolAt(m, "enabled", true),
		Priority:    intAt(m, "priority", 0),
	}
	if rule.RuleID == "" {
		rule.RuleID = rule.Name
	}

	if meta, ok := m["metadata"].(map[string]any); ok {
		rule.Metadata = meta
	}

	switch cond := m["conditions"].(type) {
	case map[string]any:
		node, err := parseNode(cond)
		if err != nil {
			return types.Rule{}, err
		}
		if g, ok := node.(*types.Group); ok {
			rule.Conditions = g
		} else {
			// Bare condition at rule level: wrap in an implicit AND group.
			rule.Conditions = &types.Group{Logic: types.LogicAnd, Children: []types.Node{node}}
		}
	case nil:
		// A rule without conditions matches everything (empty pass-through group).
		rule.Conditions = &types.Group{Logic: types.LogicAnd}
	default:
		return types.Rule{}, fmt.Errorf("conditions must be a mapping")
	}

	return rule, nil
}

func parseNode(m map[string]any) (types.Node, error) {
	if _, isLeaf := m["field"]; isLeaf {
		cond := &types.Condition{
			Field:         stringAt(m, "field"),
			Operator:      types.Operator(stringAt(m, "operator")),
			Value:         m["value"],
			CaseSensitive: boolAt(m, "case_sensitive", true),
		}
		if cond.Operator == "" {
			cond.Operator = types.OpEquals
		}
		return cond, nil
	}

	group := &types.Group{Logic: types.Logic(stringAt(m, "logic"))}
	if group.Logic == "" {
		group.Logic = types.LogicAnd
	}
	children, _ := m["conditions"].([]any)
	for i, raw := range children {
		cm, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition %d is not a mapping", i)
		}
		child, err := parseNode(cm)
		if err != nil {
			return nil, err
		}
		group.Children = append(group.Children, child)
	}
	return group, nil
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolAt(m map[string]any, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return def
}

func intAt(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func stringListAt(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
