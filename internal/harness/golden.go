package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/herald/internal/ir"
)

// Snapshot renders the stable part of a result as canonical JSON: the
// cycle token, every transcript without its content ID, and the build
// plan queue. Two runs of the same scenario produce identical bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	transcripts := make([]any, len(result.Transcripts))
	for i, tr := range result.Transcripts {
		m := map[string]any{
			"effect_index": tr.EffectIndex,
			"seq":          tr.Seq,
			"action":       tr.Action,
			"target":       tr.Target,
			"applied":      tr.Applied,
			"reason":       tr.Reason,
		}
		if tr.RulePHID != "" {
			m["rule_phid"] = tr.RulePHID
		}
		transcripts[i] = m
	}

	plans := make([]any, len(result.BuildPlans))
	for i, p := range result.BuildPlans {
		plans[i] = p
	}

	snapshot := map[string]any{
		"scenario_name": name,
		"cycle_token":   result.CycleToken,
		"transcripts":   transcripts,
		"build_plans":   plans,
	}
	if result.ErrorCode != "" {
		snapshot["error_code"] = result.ErrorCode
	}
	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check expectations.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
