package types

/*
 * Domain types for rule evaluation.
 *
 * Provides the Condition/Group expression tree, Rule, TeamRuleSet, and
 * EvaluationResult structures used by internal/rules. These types are
 * document-format agnostic - YAML-to-types conversion happens at the store
 * boundary.
 *
 * Key types:
 *   - Node: tagged union over Condition and Group
 *   - Condition: single comparison (field path, operator, literal)
 *   - Group: AND/OR/NOT combinator over child nodes
 *   - Rule: named, prioritized expression with routing metadata
 *   - TeamRuleSet: one team's ordered rules plus channel defaults
 */

// Operator is one of the 13 comparison operator tokens of the rule language.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "not_equals"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpContains     Operator = "contains"
	OpNotContains  Operator = "not_contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
	OpRegex        Operator = "regex"
	OpGreaterThan  Operator = "greater_than"
	OpLessThan     Operator = "less_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessEqual    Operator = "less_equal"
)

// Operators enumerates every valid operator token, used by the validator.
var Operators = []Operator{
	OpEquals, OpNotEquals, OpIn, OpNotIn,
	OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpRegex,
	OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual,
}

// Negative reports whether the operator matches against an absent field.
// Absent fields satisfy only the negated membership/equality operators.
func (o Operator) Negative() bool {
	switch o {
	case OpNotEquals, OpNotIn, OpNotContains:
		return true
	default:
		return false
	}
}

// Logic is a group combinator token.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
	LogicNot Logic = "not"
)

// Node is one vertex of the rule expression tree: either *Condition (leaf)
// or *Group (combinator). Explicit tagging keeps the interpreter's recursion
// over heterogeneous nodes type-safe.
type Node interface {
	node()
}

// Condition is a leaf comparison. Immutable once parsed.
type Condition struct {
	Field         string // dotted path, e.g. "ticket.priority.name"
	Operator      Operator
	Value         any  // scalar or list literal
	CaseSensitive bool // default true
}

func (*Condition) node() {}

// Group combines child nodes. NOT negates only the first child's result;
// remaining children are evaluated but ignored (legacy rule-language
// behavior that authored documents depend on). Immutable once parsed.
type Group struct {
	Logic    Logic
	Children []Node
}

func (*Group) node() {}

// Rule is one named, prioritized routing rule within a team's rule set.
type Rule struct {
	RuleID      string
	Name        string
	Description string
	HookTypes   []HookType
	Conditions  *Group
	Enabled     bool
	Priority    int // higher evaluates first
	Metadata    map[string]any
}

// Channels returns the rule-specific notification channels declared in
// metadata, if any.
func (r *Rule) Channels() []string {
	raw, ok := r.Metadata["channels"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// UrgencyOverride returns the metadata urgency override if present and valid.
func (r *Rule) UrgencyOverride() (string, bool) {
	raw, ok := r.Metadata["urgency_override"]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// BusinessHours carries a team's declared working window. Parsed and
// validated but not enforced here; delivery scheduling is a downstream
// concern.
type BusinessHours struct {
	Start string   // "HH:MM"
	End   string   // "HH:MM"
	Days  []string // lowercase weekday names
}

// TeamRuleSet is the parsed form of one team's rule document.
// Invariant: RuleID unique within Rules.
type TeamRuleSet struct {
	TeamID          string
	TeamName        string
	Rules           []Rule
	DefaultChannels map[string]string // hook type (or "general") -> channel
	Enabled         bool
	Version         string
	LastUpdated     string
	BusinessHours   *BusinessHours
}

// EvaluationResult is the ephemeral outcome of one EvaluateRules call.
type EvaluationResult struct {
	Matched          bool
	RuleID           string
	RuleName         string
	HookTypes        []HookType
	Channels         []string
	UrgencyOverride  string
	Metadata         map[string]any
	EvaluationTimeMS float64
	Errors           []string
}
