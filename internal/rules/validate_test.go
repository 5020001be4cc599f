package rules

import (
	"strings"
	"testing"
)

func validDocument() map[string]any {
	return map[string]any{
		"team_id":   "engineering",
		"team_name": "Engineering Team",
		"rules": []any{
			map[string]any{
				"rule_id":    "high_priority",
				"name":       "High Priority Issues",
				"hook_types": []any{"StatusChangeHook"},
				"priority":   10,
				"enabled":    true,
				"conditions": map[string]any{
					"logic": "and",
					"conditions": []any{
						map[string]any{
							"field":    "ticket.priority.name",
							"operator": "in",
							"value":    []any{"High", "Critical"},
						},
					},
				},
			},
		},
	}
}

func TestValidate_ValidDocument(t *testing.T) {
	res := Validate(validDocument())
	if !res.Valid {
		t.Fatalf("Valid = false, errors = %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}
}

// Validation accumulates every finding in one pass: a document missing
// team_id AND containing an unsupported field yields both errors.
func TestValidate_Accumulation(t *testing.T) {
	doc := validDocument()
	delete(doc, "team_id")
	rule := doc["rules"].([]any)[0].(map[string]any)
	conds := rule["conditions"].(map[string]any)["conditions"].([]any)
	conds[0].(map[string]any)["field"] = "ticket.made_up_field"

	res := Validate(doc)
	if res.Valid {
		t.Fatal("Valid = true, want false")
	}
	if len(res.Errors) < 2 {
		t.Errorf("Errors = %v, want at least 2 (missing team_id, unsupported field)", res.Errors)
	}
}

func TestValidate_TopLevel(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(map[string]any)
		wantError  string
		wantWarn   string
	}{
		{
			name:      "rules not a list",
			mutate:    func(d map[string]any) { d["rules"] = "oops" },
			wantError: "rules is required",
		},
		{
			name:      "missing rules",
			mutate:    func(d map[string]any) { delete(d, "rules") },
			wantError: "rules is required",
		},
		{
			name:     "missing team_name warns only",
			mutate:   func(d map[string]any) { delete(d, "team_name") },
			wantWarn: "team_name is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			res := Validate(doc)
			if tt.wantError != "" && !findingContains(res.Errors, tt.wantError) {
				t.Errorf("Errors = %v, want one containing %q", res.Errors, tt.wantError)
			}
			if tt.wantWarn != "" {
				if !findingContains(res.Warnings, tt.wantWarn) {
					t.Errorf("Warnings = %v, want one containing %q", res.Warnings, tt.wantWarn)
				}
				if !res.Valid {
					t.Errorf("Valid = false, want true (warnings are non-fatal): %v", res.Errors)
				}
			}
		})
	}
}

func TestValidate_RuleChecks(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(rule map[string]any)
		wantError string
	}{
		{
			name:      "missing name",
			mutate:    func(r map[string]any) { delete(r, "name") },
			wantError: "name is required",
		},
		{
			name:      "missing hook_types",
			mutate:    func(r map[string]any) { delete(r, "hook_types") },
			wantError: "hook_types is required",
		},
		{
			name:      "priority not integer",
			mutate:    func(r map[string]any) { r["priority"] = "ten" },
			wantError: "priority must be an integer",
		},
		{
			name:      "enabled not boolean",
			mutate:    func(r map[string]any) { r["enabled"] = "yes" },
			wantError: "enabled must be a boolean",
		},
		{
			name: "unknown operator",
			mutate: func(r map[string]any) {
				conds := r["conditions"].(map[string]any)["conditions"].([]any)
				conds[0].(map[string]any)["operator"] = "matches"
			},
			wantError: "unknown operator",
		},
		{
			name: "missing value",
			mutate: func(r map[string]any) {
				conds := r["conditions"].(map[string]any)["conditions"].([]any)
				delete(conds[0].(map[string]any), "value")
			},
			wantError: "has no value",
		},
		{
			name: "bad logic token",
			mutate: func(r map[string]any) {
				r["conditions"].(map[string]any)["logic"] = "xor"
			},
			wantError: "logic must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			rule := doc["rules"].([]any)[0].(map[string]any)
			tt.mutate(rule)
			res := Validate(doc)
			if res.Valid {
				t.Fatal("Valid = true, want false")
			}
			if !findingContains(res.Errors, tt.wantError) {
				t.Errorf("Errors = %v, want one containing %q", res.Errors, tt.wantError)
			}
		})
	}
}

func TestValidate_MultiChildNotWarns(t *testing.T) {
	doc := validDocument()
	rule := doc["rules"].([]any)[0].(map[string]any)
	rule["conditions"] = map[string]any{
		"logic": "not",
		"conditions": []any{
			map[string]any{"field": "ticket.status.name", "operator": "equals", "value": "Closed"},
			map[string]any{"field": "ticket.priority.name", "operator": "equals", "value": "Low"},
		},
	}

	res := Validate(doc)
	if !res.Valid {
		t.Fatalf("Valid = false, errors = %v (multi-child NOT must stay legal)", res.Errors)
	}
	if !findingContains(res.Warnings, "only the first is negated") {
		t.Errorf("Warnings = %v, want multi-child NOT warning", res.Warnings)
	}
}

func TestValidate_BusinessHours(t *testing.T) {
	doc := validDocument()
	doc["business_hours"] = map[string]any{
		"start": "9am",
		"end":   "17:00",
		"days":  []any{"monday", "caturday"},
	}

	res := Validate(doc)
	if !res.Valid {
		t.Fatalf("Valid = false, errors = %v (business_hours findings are warnings)", res.Errors)
	}
	if !findingContains(res.Warnings, "is not HH:MM") {
		t.Errorf("Warnings = %v, want HH:MM warning for start", res.Warnings)
	}
	if !findingContains(res.Warnings, "caturday") {
		t.Errorf("Warnings = %v, want unrecognized weekday warning", res.Warnings)
	}
}

func TestValidate_IndexedArrayAccess(t *testing.T) {
	doc := validDocument()
	rule := doc["rules"].([]any)[0].(map[string]any)
	conds := rule["conditions"].(map[string]any)["conditions"].([]any)
	conds[0].(map[string]any)["field"] = "stakeholders.user_ids.0"

	res := Validate(doc)
	if !res.Valid {
		t.Errorf("Valid = false, errors = %v (indexed access into listed arrays is supported)", res.Errors)
	}
}

func findingContains(findings []string, substr string) bool {
	for _, f := range findings {
		if strings.Contains(f, substr) {
			return true
		}
	}
	return false
}
