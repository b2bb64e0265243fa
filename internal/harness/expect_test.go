package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/herald/internal/ir"
)

func boolPtr(b bool) *bool { return &b }

func sampleResult() *Result {
	r := NewResult()
	r.Transcripts = []ir.Transcript{
		{EffectIndex: 0, Action: ir.ActionApplyBuildPlans, Applied: true, Reason: "Applied build plans."},
		{EffectIndex: 1, Action: "frobnicate", Applied: false, Reason: `No rules to handle action "frobnicate".`},
	}
	r.BuildPlans = []ir.Value{ir.String("PHID-HMBP-1"), ir.Int(7)}
	r.Revision = &ir.Revision{
		ID: 1,
		Reviewers: []ir.ReviewerStatus{
			{ReviewerPHID: "PHID-USER-a", Status: ir.ReviewerStatusAdded},
			{ReviewerPHID: "PHID-USER-b", Status: ir.ReviewerStatusAdded, Blocking: true},
		},
		CCs: []ir.PHID{"PHID-USER-c"},
	}
	return r
}

func TestEvaluateExpectationsPass(t *testing.T) {
	plans := []any{"PHID-HMBP-1", 7}
	reviewers := []ReviewerExpect{{PHID: "PHID-USER-a"}, {PHID: "PHID-USER-b", Blocking: true}}
	ccs := []string{"PHID-USER-c"}

	errs := EvaluateExpectations(sampleResult(), Expectations{
		Transcripts: []TranscriptExpect{
			{Action: "apply-build-plans", Applied: boolPtr(true)},
			{Applied: boolPtr(false), Reason: `No rules to handle action "frobnicate".`},
		},
		BuildPlans: &plans,
		Reviewers:  &reviewers,
		CCs:        &ccs,
	})
	assert.Empty(t, errs)
}

func TestEvaluateExpectationsNothingChecked(t *testing.T) {
	assert.Empty(t, EvaluateExpectations(sampleResult(), Expectations{}))
}

func TestEvaluateExpectationsTranscriptCount(t *testing.T) {
	errs := EvaluateExpectations(sampleResult(), Expectations{
		Transcripts: []TranscriptExpect{{Action: "apply-build-plans"}},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: 1 transcripts")
	assert.Contains(t, errs[0], "Actual: 2 transcripts")
	assert.Contains(t, errs[0], "[1] frobnicate applied=false")
}

func TestEvaluateExpectationsTranscriptMismatch(t *testing.T) {
	errs := EvaluateExpectations(sampleResult(), Expectations{
		Transcripts: []TranscriptExpect{
			{Action: "apply-build-plans"},
			{Applied: boolPtr(true), Reason: "Added flag."},
		},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "transcript 1 to match")
	assert.Contains(t, errs[0], "applied false, want true")
	assert.Contains(t, errs[0], `want "Added flag."`)
}

func TestEvaluateExpectationsBuildPlanOrder(t *testing.T) {
	plans := []any{7, "PHID-HMBP-1"}

	errs := EvaluateExpectations(sampleResult(), Expectations{BuildPlans: &plans})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `Expected: [7,"PHID-HMBP-1"]`)
}

func TestEvaluateExpectationsReviewerBlocking(t *testing.T) {
	reviewers := []ReviewerExpect{{PHID: "PHID-USER-a"}, {PHID: "PHID-USER-b"}}

	errs := EvaluateExpectations(sampleResult(), Expectations{Reviewers: &reviewers})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "PHID-USER-b(blocking)")
}

func TestEvaluateExpectationsMissingRevision(t *testing.T) {
	r := sampleResult()
	r.Revision = nil
	ccs := []string{}

	errs := EvaluateExpectations(r, Expectations{CCs: &ccs})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "revision not found")
}

func TestEvaluateExpectationsErrorNotRaised(t *testing.T) {
	errs := EvaluateExpectations(sampleResult(), Expectations{Error: "DIFF_NOT_FOUND"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "cycle succeeded")
}

func TestSnapshotOmitsEmptyRule(t *testing.T) {
	r := NewResult()
	r.CycleToken = "c"
	r.Transcripts = []ir.Transcript{{Action: ir.ActionNothing, Target: ir.Null{}, Applied: true, Reason: "Did nothing.", Seq: 1}}

	data, err := Snapshot("s", r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"build_plans":[],"cycle_token":"c","scenario_name":"s","transcripts":[{"action":"nothing","applied":true,"effect_index":0,"reason":"Did nothing.","seq":1,"target":null}]}`,
		string(data))
}
