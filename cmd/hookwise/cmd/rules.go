package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hookwise/hookwise/internal/core/config"
	"github.com/hookwise/hookwise/internal/rules"
	"github.com/hookwise/hookwise/internal/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with team rule documents",
}

var validateCmd = &cobra.Command{
	Use:   "validate <document.yaml>",
	Short: "Statically check a rule document",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate an event against a team's rules",
	RunE:  runEvaluate,
}

var (
	evalTeam      string
	evalEventFile string
	evalHookTypes []string
	showMetrics   bool
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(validateCmd)
	rulesCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalTeam, "team", "", "team id (required)")
	evaluateCmd.Flags().StringVar(&evalEventFile, "event", "", "normalized event JSON file (required)")
	evaluateCmd.Flags().StringSliceVar(&evalHookTypes, "hook-types", nil, "restrict to these hook types")
	evaluateCmd.Flags().BoolVar(&showMetrics, "show-metrics", false, "print engine metrics after evaluation")
	evaluateCmd.MarkFlagRequired("team")
	evaluateCmd.MarkFlagRequired("event")
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	res := rules.Validate(doc)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Severity", "Finding"})
	for _, e := range res.Errors {
		t.AppendRow(table.Row{"error", e})
	}
	for _, w := range res.Warnings {
		t.AppendRow(table.Row{"warning", w})
	}
	if len(res.Errors) == 0 && len(res.Warnings) == 0 {
		t.AppendRow(table.Row{"ok", "no findings"})
	}
	t.Render()

	if !res.Valid {
		return fmt.Errorf("document has %d error(s)", len(res.Errors))
	}
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if rulesDir != "" {
		cfg.RulesDir = rulesDir
	}

	raw, err := os.ReadFile(evalEventFile)
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}
	var sections map[string]any
	if err := json.Unmarshal(raw, &sections); err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}
	event := types.NewEvent(sections)

	store := rules.NewStore(cfg.RulesDir, cfg.RuleCacheTTL, slog.Default())
	engine := rules.NewEngine(store, slog.Default())

	var hookTypes []types.HookType
	if len(evalHookTypes) > 0 {
		hookTypes = evalHookTypes
	}
	result := engine.EvaluateRules(event, evalTeam, hookTypes)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendRows([]table.Row{
		{"matched", result.Matched},
		{"rule_id", result.RuleID},
		{"rule_name", result.RuleName},
		{"channels", strings.Join(result.Channels, ", ")},
		{"urgency_override", result.UrgencyOverride},
		{"evaluation_time_ms", fmt.Sprintf("%.3f", result.EvaluationTimeMS)},
		{"errors", strings.Join(result.Errors, "; ")},
	})
	t.Render()

	if showMetrics {
		m := engine.GetMetrics()
		mt := table.NewWriter()
		mt.SetOutputMirror(os.Stdout)
		mt.AppendHeader(table.Row{"Metric", "Value"})
		mt.AppendRows([]table.Row{
			{"evaluations_count", m.EvaluationsCount},
			{"cache_hits", m.CacheHits},
			{"cache_misses", m.CacheMisses},
			{"cache_hit_rate", fmt.Sprintf("%.2f", m.CacheHitRate)},
			{"cached_teams", m.CachedTeams},
			{"validation_errors", m.ValidationErrors},
		})
		mt.Render()
	}
	return nil
}
