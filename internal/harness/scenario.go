package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/herald/internal/ir"
	"github.com/roach88/herald/internal/store"
)

// Scenario defines one herald cycle to run and check.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// CycleToken is the fixed cycle token. Defaults to "test-cycle-default".
	CycleToken string `yaml:"cycle_token,omitempty"`

	// Actor is the system actor PHID the revision is rehydrated as.
	Actor string `yaml:"actor,omitempty"`

	// Fixture is loaded into the store before the cycle.
	Fixture store.Fixture `yaml:"fixture"`

	// Event is the revision update to evaluate.
	Event EventStep `yaml:"event"`

	// Effects are the effects rule matching produced, in order.
	Effects []EffectStep `yaml:"effects,omitempty"`

	// EffectsFile is a CUE effects file, relative to the scenario file.
	// Mutually exclusive with Effects.
	EffectsFile string `yaml:"effects_file,omitempty"`

	Expect Expectations `yaml:"expect"`

	// Dir is the directory of the scenario file, set by LoadScenario.
	Dir string `yaml:"-"`
}

// EventStep identifies the revision and diff of the event.
type EventStep struct {
	Revision int64 `yaml:"revision"`
	Diff     int64 `yaml:"diff"`
}

// EffectStep is one effect in YAML form.
type EffectStep struct {
	Rule   string `yaml:"rule,omitempty"`
	Action string `yaml:"action"`
	Target any    `yaml:"target,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// Expectations describe the outcome of the cycle. Nil fields are not
// checked.
type Expectations struct {
	// Error is the expected cycle error code. When set, the cycle must
	// fail with it and nothing else is checked.
	Error string `yaml:"error,omitempty"`

	// Transcripts are matched one-to-one and in order.
	Transcripts []TranscriptExpect `yaml:"transcripts,omitempty"`

	// BuildPlans is the expected build plan queue of the cycle.
	BuildPlans *[]any `yaml:"build_plans,omitempty"`

	// Reviewers are the revision's persisted reviewers, in order.
	Reviewers *[]ReviewerExpect `yaml:"reviewers,omitempty"`

	// CCs are the revision's persisted CCs, in order.
	CCs *[]string `yaml:"ccs,omitempty"`
}

// TranscriptExpect matches one transcript. Empty fields are not checked.
type TranscriptExpect struct {
	Action  string `yaml:"action,omitempty"`
	Applied *bool  `yaml:"applied,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
}

// ReviewerExpect matches one reviewer edge.
type ReviewerExpect struct {
	PHID     string `yaml:"phid"`
	Blocking bool   `yaml:"blocking,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.Dir = filepath.Dir(path)

	if scenario.EffectsFile != "" {
		if _, err := os.Stat(scenario.effectsPath()); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: effects file not found: %s", scenario.effectsPath())
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func (s *Scenario) effectsPath() string {
	if filepath.IsAbs(s.EffectsFile) || s.Dir == "" {
		return s.EffectsFile
	}
	return filepath.Join(s.Dir, s.EffectsFile)
}

// effects converts the YAML effects to ir.Effect.
func (s *Scenario) effects() ([]ir.Effect, error) {
	effects := make([]ir.Effect, 0, len(s.Effects))
	for i, step := range s.Effects {
		target, err := ir.FromAny(step.Target)
		if err != nil {
			return nil, fmt.Errorf("effects[%d].target: %w", i, err)
		}
		effects = append(effects, ir.Effect{
			RulePHID: ir.PHID(step.Rule),
			Action:   ir.ActionKind(step.Action),
			Target:   target,
			Reason:   step.Reason,
		})
	}
	return effects, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Event.Revision == 0 {
		return fmt.Errorf("event.revision is required")
	}
	if s.Event.Diff == 0 {
		return fmt.Errorf("event.diff is required")
	}

	if len(s.Effects) > 0 && s.EffectsFile != "" {
		return fmt.Errorf("effects and effects_file are mutually exclusive")
	}

	for i, step := range s.Effects {
		if step.Action == "" {
			return fmt.Errorf("effects[%d]: action is required", i)
		}
	}

	if s.Expect.Error != "" && (len(s.Expect.Transcripts) > 0 || s.Expect.BuildPlans != nil ||
		s.Expect.Reviewers != nil || s.Expect.CCs != nil) {
		return fmt.Errorf("expect.error cannot be combined with other expectations")
	}

	for i, r := range deref(s.Expect.Reviewers) {
		if r.PHID == "" {
			return fmt.Errorf("expect.reviewers[%d]: phid is required", i)
		}
	}

	return nil
}

func deref[T any](p *[]T) []T {
	if p == nil {
		return nil
	}
	return *p
}
