package harness

import (
	"context"
	"fmt"

	"github.com/roach88/herald/internal/compiler"
	"github.com/roach88/herald/internal/engine"
	"github.com/roach88/herald/internal/ir"
	"github.com/roach88/herald/internal/store"
	"github.com/roach88/herald/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	CycleToken string `json:"cycle_token"`

	// Transcripts are the transcripts as read back from the store.
	Transcripts []ir.Transcript `json:"transcripts"`

	// BuildPlans is the cycle's persisted build plan queue.
	BuildPlans []ir.Value `json:"build_plans"`

	// Revision is the event's revision as persisted after the cycle.
	Revision *ir.Revision `json:"revision,omitempty"`

	// ErrorCode is the cycle error code when the cycle failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Transcripts: []ir.Transcript{},
		BuildPlans:  []ir.Value{},
		Errors:      []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create fresh in-memory database and seed the fixture
//  2. Resolve effects (inline or compiled from the effects file)
//  3. Run one engine cycle with a fixed cycle token
//  4. Read transcripts, build plans and the revision back from the store
//  5. Evaluate expectations
//
// An error is returned only when the scenario could not be executed; a
// failing expectation is reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.Seed(ctx, scenario.Fixture); err != nil {
		return nil, fmt.Errorf("failed to seed fixture: %w", err)
	}

	effects, err := resolveEffects(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve effects: %w", err)
	}

	var opts []engine.Option
	if scenario.Actor != "" {
		opts = append(opts, engine.WithSystemActor(ir.PHID(scenario.Actor)))
	}
	eng := engine.New(st, testutil.NewFixedCycleGenerator(scenario.CycleToken), opts...)

	result := NewResult()
	ev := engine.Event{RevisionID: scenario.Event.Revision, DiffID: scenario.Event.Diff}

	cycle, err := eng.RunCycle(ctx, ev, engine.StaticEffects(effects))
	if err != nil {
		code := engine.CodeOf(err)
		if code == "" {
			return nil, fmt.Errorf("cycle failed: %w", err)
		}
		result.ErrorCode = string(code)
		checkError(result, scenario.Expect, err)
		return result, nil
	}
	result.CycleToken = cycle.CycleToken

	if err := readBack(ctx, st, scenario.Event.Revision, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	return result, nil
}

func resolveEffects(scenario *Scenario) ([]ir.Effect, error) {
	if scenario.EffectsFile != "" {
		return compiler.CompileEffectsFile(scenario.effectsPath())
	}
	return scenario.effects()
}

// readBack loads what the cycle persisted, so expectations check the
// store rather than the engine's in-memory result.
func readBack(ctx context.Context, st *store.Store, revisionID int64, result *Result) error {
	transcripts, err := st.ReadTranscripts(ctx, result.CycleToken)
	if err != nil {
		return fmt.Errorf("failed to read transcripts: %w", err)
	}
	result.Transcripts = transcripts

	queue, err := st.ReadBuildPlanQueue(ctx, result.CycleToken)
	if err != nil {
		return fmt.Errorf("failed to read build plan queue: %w", err)
	}
	for _, q := range queue {
		result.BuildPlans = append(result.BuildPlans, q.Plan)
	}

	revs, err := st.QueryRevisions(ctx, ir.RevisionQuery{
		IDs:                []int64{revisionID},
		Actor:              ir.NewSystemActor(engine.DefaultSystemActorPHID),
		NeedRelationships:  true,
		NeedReviewerStatus: true,
	})
	if err != nil {
		return fmt.Errorf("failed to read revision: %w", err)
	}
	if len(revs) == 1 {
		result.Revision = revs[0]
	}
	return nil
}

func checkError(result *Result, expect Expectations, err error) {
	if expect.Error == "" {
		result.AddError(fmt.Sprintf("cycle failed: %v", err))
		return
	}
	if result.ErrorCode != expect.Error {
		result.AddError(fmt.Sprintf("expected error %s, got %s: %v", expect.Error, result.ErrorCode, err))
	}
}
