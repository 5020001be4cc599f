package rules

import (
	"fmt"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Expression tree evaluation.
 *
 * Recursively evaluates the Condition/Group tagged union against one event.
 * Group semantics:
 *   - AND: every child must match; an empty group is a pass-through (true)
 *   - OR:  at least one child must match
 *   - NOT: negates ONLY the first child's result; any additional children
 *     are still evaluated but their results are ignored
 *
 * The NOT behavior is a legacy quirk of the rule language, kept because
 * authored documents depend on it. The validator warns on multi-child NOT
 * groups; the evaluator stays faithful.
 *
 * Errors from a single condition (bad regex, unknown operator) propagate to
 * the rule-level caller, which records them against that rule and moves on
 * to the next candidate instead of aborting the evaluation pass.
 */

// EvaluateNode evaluates one expression tree node against an event.
func EvaluateNode(node types.Node, ev *types.Event) (bool, error) {
	switch n := node.(type) {
	case *types.Condition:
		return evaluateCondition(n, ev)
	case *types.Group:
		return evaluateGroup(n, ev)
	default:
		return false, fmt.Errorf("unknown expression node %T", node)
	}
}

func evaluateGroup(g *types.Group, ev *types.Event) (bool, error) {
	switch g.Logic {
	case types.LogicAnd, "":
		for _, child := range g.Children {
			matched, err := EvaluateNode(child, ev)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		// Empty AND group is a pass-through.
		return true, nil

	case types.LogicOr:
		for _, child := range g.Children {
			matched, err := EvaluateNode(child, ev)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil

	case types.LogicNot:
		if len(g.Children) == 0 {
			return true, nil
		}
		first, err := EvaluateNode(g.Children[0], ev)
		if err != nil {
			return false, err
		}
		// Legacy behavior: evaluate the remaining children but ignore them.
		for _, child := range g.Children[1:] {
			if _, err := EvaluateNode(child, ev); err != nil {
				return false, err
			}
		}
		return !first, nil

	default:
		return false, fmt.Errorf("unknown group logic %q", g.Logic)
	}
}

func evaluateCondition(c *types.Condition, ev *types.Event) (bool, error) {
	value, found := Extract(c.Field, ev)
	if !found {
		// Absent fields satisfy only the negated operators.
		return c.Operator.Negative(), nil
	}
	return Apply(c.Operator, value, c.Value, c.CaseSensitive)
}
