package aggregate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

/*
 * Quality assessment.
 *
 * Scores one collected payload on four axes:
 *   - completeness: fraction of the source-type-specific expected fields
 *     present and non-null
 *   - accuracy: 1.0 minus a fixed penalty per record violating a source's
 *     structural invariant (GitHub commit SHAs, JIRA issue keys), floored at 0
 *   - consistency: 1.0 minus a fixed penalty per list-valued field mixing
 *     element types, floored at 0
 *   - timeliness: 1.0 within the freshness window, linear decay to 0.0 at
 *     the max-age bound
 *
 * Overall is the weighted sum below. Constants here are the single source of
 * truth for the scoring model; revisit them here, not at call sites.
 */

// Canonical scoring constants.
const (
	WeightCompleteness = 0.3
	WeightAccuracy     = 0.3
	WeightConsistency  = 0.2
	WeightTimeliness   = 0.2

	AccuracyPenaltyPerRecord  = 0.1
	ConsistencyPenaltyPerList = 0.1

	FreshnessWindow   = time.Hour
	DefaultMaxDataAge = 24 * time.Hour

	LevelExcellentFloor = 0.9
	LevelGoodFloor      = 0.7
	LevelFairFloor      = 0.5

	adviceFloor = 0.8
)

// QualityMetrics is the scored assessment of one collected payload.
type QualityMetrics struct {
	Completeness    float64
	Accuracy        float64
	Consistency     float64
	Timeliness      float64
	OverallScore    float64
	Level           string
	Issues          []string
	Recommendations []string
}

// CollectedData is one successful collection outcome. Immutable once built;
// consumed by conflict resolution and discarded after aggregation.
type CollectedData struct {
	SourceType       SourceType
	SourceIdentifier string
	Data             map[string]any
	CollectedAt      time.Time
	Quality          QualityMetrics
	Confidence       float64 // [0,1]
}

// expectedFields lists the payload keys each source type should deliver.
var expectedFields = map[SourceType][]string{
	SourceGitHub:      {"commits", "pull_requests", "issues"},
	SourceJira:        {"issues", "sprints", "worklogs"},
	SourceTeamMetrics: {"velocity", "capacity", "completed_points"},
	SourceCalendar:    {"events", "meetings"},
	SourceCustom:      {"data"},
}

var commitSHAPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Assessor scores collected payloads against a freshness bound.
type Assessor struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewAssessor creates an assessor. A non-positive maxAge falls back to
// DefaultMaxDataAge.
func NewAssessor(maxAge time.Duration) *Assessor {
	if maxAge <= 0 {
		maxAge = DefaultMaxDataAge
	}
	return &Assessor{maxAge: maxAge, now: time.Now}
}

// Assess scores one collected payload.
func (a *Assessor) Assess(c *CollectedData) QualityMetrics {
	m := QualityMetrics{
		Completeness: assessCompleteness(c.SourceType, c.Data),
		Accuracy:     assessAccuracy(c.SourceType, c.Data),
		Consistency:  assessConsistency(c.Data),
		Timeliness:   a.assessTimeliness(c.CollectedAt),
	}
	m.OverallScore = WeightCompleteness*m.Completeness +
		WeightAccuracy*m.Accuracy +
		WeightConsistency*m.Consistency +
		WeightTimeliness*m.Timeliness
	m.Level = qualityLevel(m.OverallScore)
	m.Issues, m.Recommendations = qualityAdvice(m)
	return m
}

// assessCompleteness is the fraction of expected fields present and non-null.
func assessCompleteness(st SourceType, data map[string]any) float64 {
	expected := expectedFields[st]
	if len(expected) == 0 {
		return 1.0
	}
	present := 0
	for _, field := range expected {
		if v, ok := data[field]; ok && v != nil {
			present++
		}
	}
	return float64(present) / float64(len(expected))
}

// assessAccuracy applies source-specific structural invariants: GitHub
// commit SHAs must be 40 lowercase hex chars, JIRA issue keys must contain a
// hyphen. Penalty per offending record, floored at zero.
func assessAccuracy(st SourceType, data map[string]any) float64 {
	offending := 0
	switch st {
	case SourceGitHub:
		for _, record := range listAt(data, "commits") {
			m, ok := record.(map[string]any)
			if !ok {
				offending++
				continue
			}
			sha, _ := m["sha"].(string)
			if !commitSHAPattern.MatchString(sha) {
				offending++
			}
		}
	case SourceJira:
		for _, record := range listAt(data, "issues") {
			m, ok := record.(map[string]any)
			if !ok {
				offending++
				continue
			}
			key, _ := m["key"].(string)
			if !containsHyphen(key) {
				offending++
			}
		}
	}

	score := 1.0 - AccuracyPenaltyPerRecord*float64(offending)
	if score < 0 {
		score = 0
	}
	return score
}

// assessConsistency penalizes list-valued fields whose elements mix types.
func assessConsistency(data map[string]any) float64 {
	mixed := 0
	for _, v := range data {
		list, ok := v.([]any)
		if !ok || len(list) < 2 {
			continue
		}
		first := reflect.TypeOf(list[0])
		for _, elem := range list[1:] {
			if reflect.TypeOf(elem) != first {
				mixed++
				break
			}
		}
	}

	score := 1.0 - ConsistencyPenaltyPerList*float64(mixed)
	if score < 0 {
		score = 0
	}
	return score
}

// assessTimeliness is 1.0 inside the freshness window, 0.0 beyond the max
// age, and decays linearly in between.
func (a *Assessor) assessTimeliness(collectedAt time.Time) float64 {
	age := a.now().Sub(collectedAt)
	switch {
	case age <= FreshnessWindow:
		return 1.0
	case age >= a.maxAge:
		return 0.0
	default:
		return 1.0 - float64(age-FreshnessWindow)/float64(a.maxAge-FreshnessWindow)
	}
}

func qualityLevel(score float64) string {
	switch {
	case score >= LevelExcellentFloor:
		return "excellent"
	case score >= LevelGoodFloor:
		return "good"
	case score >= LevelFairFloor:
		return "fair"
	default:
		return "poor"
	}
}

// qualityAdvice emits human-readable findings for any sub-score below the
// advice floor.
func qualityAdvice(m QualityMetrics) (issues, recommendations []string) {
	if m.Completeness < adviceFloor {
		issues = append(issues, fmt.Sprintf("completeness below target (%.2f)", m.Completeness))
		recommendations = append(recommendations, "verify the source delivers all expected fields")
	}
	if m.Accuracy < adviceFloor {
		issues = append(issues, fmt.Sprintf("accuracy below target (%.2f)", m.Accuracy))
		recommendations = append(recommendations, "inspect records failing structural checks")
	}
	if m.Consistency < adviceFloor {
		issues = append(issues, fmt.Sprintf("consistency below target (%.2f)", m.Consistency))
		recommendations = append(recommendations, "normalize mixed-type list fields at the source")
	}
	if m.Timeliness < adviceFloor {
		issues = append(issues, fmt.Sprintf("timeliness below target (%.2f)", m.Timeliness))
		recommendations = append(recommendations, "re-collect; data is stale")
	}
	return issues, recommendations
}

func listAt(data map[string]any, key string) []any {
	list, _ := data[key].([]any)
	return list
}

func containsHyphen(s string) bool {
	return strings.ContainsRune(s, '-')
}
