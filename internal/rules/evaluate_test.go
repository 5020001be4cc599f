package rules

import (
	"testing"

	"github.com/hookwise/hookwise/internal/types"
)

func cond(field string, op types.Operator, value any) *types.Condition {
	return &types.Condition{Field: field, Operator: op, Value: value, CaseSensitive: true}
}

func TestEvaluateNode_Condition(t *testing.T) {
	ev := sampleEvent()

	tests := []struct {
		name string
		node types.Node
		want bool
	}{
		{
			name: "matching leaf",
			node: cond("ticket.priority.name", types.OpEquals, "Critical"),
			want: true,
		},
		{
			name: "non-matching leaf",
			node: cond("ticket.priority.name", types.OpEquals, "Low"),
			want: false,
		},
		{
			name: "absent field positive operator",
			node: cond("ticket.resolution.name", types.OpEquals, "Done"),
			want: false,
		},
		{
			name: "absent field not_equals matches",
			node: cond("ticket.resolution.name", types.OpNotEquals, "Done"),
			want: true,
		},
		{
			name: "absent field not_in matches",
			node: cond("ticket.resolution.name", types.OpNotIn, []any{"Done"}),
			want: true,
		},
		{
			name: "absent field not_contains matches",
			node: cond("ticket.resolution.name", types.OpNotContains, "Do"),
			want: true,
		},
		{
			name: "absent field greater_than fails",
			node: cond("ticket.resolution.name", types.OpGreaterThan, 1),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateNode(tt.node, ev)
			if err != nil {
				t.Fatalf("EvaluateNode() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateNode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateNode_Groups(t *testing.T) {
	ev := sampleEvent()

	matching := cond("ticket.priority.name", types.OpEquals, "Critical")
	failing := cond("ticket.priority.name", types.OpEquals, "Low")

	tests := []struct {
		name string
		node types.Node
		want bool
	}{
		{
			name: "and all match",
			node: &types.Group{Logic: types.LogicAnd, Children: []types.Node{matching, cond("event.classification.urgency", types.OpEquals, "high")}},
			want: true,
		},
		{
			name: "and one fails",
			node: &types.Group{Logic: types.LogicAnd, Children: []types.Node{matching, failing}},
			want: false,
		},
		{
			name: "empty and group is a pass-through",
			node: &types.Group{Logic: types.LogicAnd},
			want: true,
		},
		{
			name: "or one matches",
			node: &types.Group{Logic: types.LogicOr, Children: []types.Node{failing, matching}},
			want: true,
		},
		{
			name: "or none match",
			node: &types.Group{Logic: types.LogicOr, Children: []types.Node{failing, failing}},
			want: false,
		},
		{
			name: "empty or group does not match",
			node: &types.Group{Logic: types.LogicOr},
			want: false,
		},
		{
			name: "not of matching leaf",
			node: &types.Group{Logic: types.LogicNot, Children: []types.Node{matching}},
			want: false,
		},
		{
			name: "not of failing leaf",
			node: &types.Group{Logic: types.LogicNot, Children: []types.Node{failing}},
			want: true,
		},
		{
			name: "nested groups",
			node: &types.Group{Logic: types.LogicAnd, Children: []types.Node{
				matching,
				&types.Group{Logic: types.LogicOr, Children: []types.Node{failing, matching}},
			}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateNode(tt.node, ev)
			if err != nil {
				t.Fatalf("EvaluateNode() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateNode() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Legacy rule-language behavior: NOT negates only its first child. With
// children [A=false, B=true] the group is true; B is evaluated but ignored.
// This quirk is load-bearing for existing documents and must not be "fixed".
func TestEvaluateNode_NotGroupFirstChildOnly(t *testing.T) {
	ev := sampleEvent()

	a := cond("ticket.priority.name", types.OpEquals, "Low")      // evaluates false
	b := cond("ticket.priority.name", types.OpEquals, "Critical") // evaluates true

	group := &types.Group{Logic: types.LogicNot, Children: []types.Node{a, b}}
	got, err := EvaluateNode(group, ev)
	if err != nil {
		t.Fatalf("EvaluateNode() error = %v, want nil", err)
	}
	if !got {
		t.Error("NOT group = false, want true (only the first child is negated)")
	}

	// Reversed: first child true means the group is false regardless of B.
	reversed := &types.Group{Logic: types.LogicNot, Children: []types.Node{b, a}}
	got, err = EvaluateNode(reversed, ev)
	if err != nil {
		t.Fatalf("EvaluateNode() error = %v, want nil", err)
	}
	if got {
		t.Error("NOT group = true, want false (first child matched)")
	}
}

func TestEvaluateNode_ErrorPropagation(t *testing.T) {
	ev := sampleEvent()

	bad := cond("ticket.summary", types.OpRegex, "[unclosed")
	group := &types.Group{Logic: types.LogicAnd, Children: []types.Node{bad}}

	if _, err := EvaluateNode(group, ev); err == nil {
		t.Error("EvaluateNode() error = nil, want regex compile error to propagate")
	}

	// The error surfaces from ignored NOT children too.
	notGroup := &types.Group{Logic: types.LogicNot, Children: []types.Node{
		cond("ticket.summary", types.OpEquals, "x"),
		bad,
	}}
	if _, err := EvaluateNode(notGroup, ev); err == nil {
		t.Error("EvaluateNode() error = nil, want error from ignored NOT child")
	}
}
