// Package types provides domain models shared across Hookwise components.
//
// Zero-dependency design: types.go, rules.go, and errors.go use only the
// standard library so the rule engine can be embedded without pulling in
// drivers or CLI machinery. ID utilities in ids.go import uuid but are
// isolated for selective inclusion.
package types

import "time"

// HookType identifies the webhook category a rule subscribes to
// (e.g. "StatusChangeHook", "AssignmentHook", "CommentHook").
type HookType = string

// Event is a normalized, read-only view of one inbound JIRA webhook after
// external enrichment. Fields live in a generic tree of maps, lists, and
// scalars under five namespaces: event, ticket, stakeholders, context,
// routing_hints. Constructed once per webhook; never mutated by evaluation.
type Event struct {
	sections map[string]any
}

// NewEvent wraps an already-normalized namespace tree.
// The caller must not mutate sections after handing it over.
func NewEvent(sections map[string]any) *Event {
	if sections == nil {
		sections = map[string]any{}
	}
	return &Event{sections: sections}
}

// Section returns the root value for a namespace (event, ticket,
// stakeholders, context, routing_hints). Unknown namespaces report false.
func (e *Event) Section(name string) (any, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e.sections[name]
	return v, ok
}

// DateRange bounds one aggregation request.
type DateRange struct {
	From time.Time
	To   time.Time
}
