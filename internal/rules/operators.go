package rules

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements the 13 comparison operators of the rule language with
 * type-aware, fail-closed semantics: any operator applied to mismatched or
 * invalid types evaluates to false (true for the negated forms) rather than
 * failing. The single exception is a regex literal that does not compile,
 * which surfaces as an error so the engine can isolate the offending rule.
 *
 * Case sensitivity: equality, membership, substring, and prefix/suffix
 * operators lower-case both sides when case_sensitive=false and the operands
 * are strings (or a list of strings). Regex uses the (?i) flag instead.
 *
 * Numeric comparison: operands mix float64/int/int64 freely; string operands
 * that look like integers are coerced before comparing. Anything else makes
 * the comparison false.
 *
 * Why function-based: 13 operators via switch dispatch reads cleaner than 13
 * single-method interface implementations with minimal behavior variation.
 */

// Apply compares a field value against a literal under the given operator.
// Total over every (value, literal) pair; the only returned errors are an
// unknown operator token or an uncompilable regex pattern.
func Apply(op types.Operator, value, literal any, caseSensitive bool) (bool, error) {
	switch op {
	case types.OpEquals:
		return looseEqual(value, literal, caseSensitive), nil
	case types.OpNotEquals:
		return !looseEqual(value, literal, caseSensitive), nil
	case types.OpIn:
		return memberOf(value, asList(literal), caseSensitive), nil
	case types.OpNotIn:
		return !memberOf(value, asList(literal), caseSensitive), nil
	case types.OpContains:
		return containsValue(value, literal, caseSensitive), nil
	case types.OpNotContains:
		return !containsValue(value, literal, caseSensitive), nil
	case types.OpStartsWith:
		s, sub, ok := stringPair(value, literal, caseSensitive)
		return ok && strings.HasPrefix(s, sub), nil
	case types.OpEndsWith:
		s, sub, ok := stringPair(value, literal, caseSensitive)
		return ok && strings.HasSuffix(s, sub), nil
	case types.OpRegex:
		return matchRegex(value, literal, caseSensitive)
	case types.OpGreaterThan:
		a, b, ok := asNumbers(value, literal)
		return ok && a > b, nil
	case types.OpLessThan:
		a, b, ok := asNumbers(value, literal)
		return ok && a < b, nil
	case types.OpGreaterEqual:
		a, b, ok := asNumbers(value, literal)
		return ok && a >= b, nil
	case types.OpLessEqual:
		a, b, ok := asNumbers(value, literal)
		return ok && a <= b, nil
	default:
		return false, fmt.Errorf("%w: %q", types.ErrUnknownOperator, op)
	}
}

// looseEqual compares two values with case folding for string pairs and
// numeric coercion for mixed int/float operands. Falls back to DeepEqual so
// the comparison is total over list and map values.
func looseEqual(a, b any, caseSensitive bool) bool {
	if as, ok1 := a.(string); ok1 {
		if bs, ok2 := b.(string); ok2 {
			return foldCase(as, caseSensitive) == foldCase(bs, caseSensitive)
		}
	}
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return reflect.DeepEqual(a, b)
}

// memberOf checks whether value equals any element of the list.
func memberOf(value any, list []any, caseSensitive bool) bool {
	for _, elem := range list {
		if looseEqual(value, elem, caseSensitive) {
			return true
		}
	}
	return false
}

// asList coerces a scalar literal into a one-element list for in/not_in.
func asList(literal any) []any {
	if list, ok := literal.([]any); ok {
		return list
	}
	return []any{literal}
}

// containsValue implements contains: substring test for string fields,
// element membership for list fields, false otherwise (the negated form
// therefore defaults to true for other types).
func containsValue(value, literal any, caseSensitive bool) bool {
	switch v := value.(type) {
	case string:
		sub, ok := literal.(string)
		if !ok {
			return false
		}
		return strings.Contains(foldCase(v, caseSensitive), foldCase(sub, caseSensitive))
	case []any:
		return memberOf(literal, v, caseSensitive)
	default:
		return false
	}
}

// matchRegex reports whether the pattern is found anywhere in the string
// value (search semantics). Only valid for string values; non-string values
// never match. A pattern that does not compile is an evaluation error.
func matchRegex(value, literal any, caseSensitive bool) (bool, error) {
	s, ok := value.(string)
	if !ok {
		return false, nil
	}
	pattern, ok := literal.(string)
	if !ok {
		return false, nil
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrInvalidPattern, err)
	}
	return re.MatchString(s), nil
}

// stringPair extracts two string operands with case folding applied.
func stringPair(a, b any, caseSensitive bool) (string, string, bool) {
	as, ok1 := a.(string)
	bs, ok2 := b.(string)
	if !ok1 || !ok2 {
		return "", "", false
	}
	return foldCase(as, caseSensitive), foldCase(bs, caseSensitive), true
}

func foldCase(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// asNumbers attempts to convert both values to float64 for numeric comparison.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toNumber(a)
	nb, okb := toNumber(b)
	return na, nb, oka && okb
}

// toNumber converts numeric types to float64. Strings that look like
// integers are coerced; any other string (or type) is not numeric.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return float64(i), true
	default:
		return 0, false
	}
}
