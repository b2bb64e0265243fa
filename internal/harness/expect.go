package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/herald/internal/ir"
)

// ExpectationError is returned when an expectation fails.
// It includes the transcripts for debugging context.
type ExpectationError struct {
	Type        string // Expectation category
	Expected    string
	Actual      string
	Transcripts []ir.Transcript
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Transcripts) > 0 {
		fmt.Fprintf(&buf, "\nTranscripts:\n")
		for _, tr := range e.Transcripts {
			fmt.Fprintf(&buf, "  [%d] %s applied=%t %q\n", tr.EffectIndex, tr.Action, tr.Applied, tr.Reason)
		}
	}

	return buf.String()
}

// EvaluateExpectations checks a successful cycle's result against expect
// and returns a message for every failure.
func EvaluateExpectations(result *Result, expect Expectations) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if expect.Error != "" {
		add(&ExpectationError{
			Type:     "error",
			Expected: expect.Error,
			Actual:   "cycle succeeded",
		})
		return errs
	}

	add(checkTranscripts(result.Transcripts, expect.Transcripts))
	if expect.BuildPlans != nil {
		add(checkBuildPlans(result.BuildPlans, *expect.BuildPlans))
	}
	if expect.Reviewers != nil {
		add(checkReviewers(result.Revision, *expect.Reviewers))
	}
	if expect.CCs != nil {
		add(checkCCs(result.Revision, *expect.CCs))
	}

	return errs
}

func checkTranscripts(actual []ir.Transcript, expect []TranscriptExpect) error {
	if expect == nil {
		return nil
	}
	if len(actual) != len(expect) {
		return &ExpectationError{
			Type:        "transcripts",
			Expected:    fmt.Sprintf("%d transcripts", len(expect)),
			Actual:      fmt.Sprintf("%d transcripts", len(actual)),
			Transcripts: actual,
		}
	}

	for i, want := range expect {
		got := actual[i]
		var diffs []string
		if want.Action != "" && string(got.Action) != want.Action {
			diffs = append(diffs, fmt.Sprintf("action %q, want %q", got.Action, want.Action))
		}
		if want.Applied != nil && got.Applied != *want.Applied {
			diffs = append(diffs, fmt.Sprintf("applied %t, want %t", got.Applied, *want.Applied))
		}
		if want.Reason != "" && got.Reason != want.Reason {
			diffs = append(diffs, fmt.Sprintf("reason %q, want %q", got.Reason, want.Reason))
		}
		if len(diffs) > 0 {
			return &ExpectationError{
				Type:        "transcripts",
				Expected:    fmt.Sprintf("transcript %d to match", i),
				Actual:      strings.Join(diffs, "; "),
				Transcripts: actual,
			}
		}
	}
	return nil
}

func checkBuildPlans(actual []ir.Value, expect []any) error {
	want, err := ir.FromAny(expect)
	if err != nil {
		return fmt.Errorf("expect.build_plans: %w", err)
	}
	wantJSON, err := ir.MarshalCanonical(want)
	if err != nil {
		return fmt.Errorf("expect.build_plans: %w", err)
	}
	gotJSON, err := ir.MarshalCanonical(ir.Array(actual))
	if err != nil {
		return fmt.Errorf("build plans: %w", err)
	}

	if string(wantJSON) != string(gotJSON) {
		return &ExpectationError{
			Type:     "build_plans",
			Expected: string(wantJSON),
			Actual:   string(gotJSON),
		}
	}
	return nil
}

func checkReviewers(rev *ir.Revision, expect []ReviewerExpect) error {
	if rev == nil {
		return &ExpectationError{Type: "reviewers", Expected: "revision", Actual: "revision not found"}
	}

	got := make([]string, len(rev.Reviewers))
	for i, r := range rev.Reviewers {
		got[i] = formatReviewer(string(r.ReviewerPHID), r.Blocking)
	}
	want := make([]string, len(expect))
	for i, r := range expect {
		want[i] = formatReviewer(r.PHID, r.Blocking)
	}

	if strings.Join(got, ",") != strings.Join(want, ",") {
		return &ExpectationError{
			Type:     "reviewers",
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func formatReviewer(phid string, blocking bool) string {
	if blocking {
		return phid + "(blocking)"
	}
	return phid
}

func checkCCs(rev *ir.Revision, expect []string) error {
	if rev == nil {
		return &ExpectationError{Type: "ccs", Expected: "revision", Actual: "revision not found"}
	}

	got := make([]string, len(rev.CCs))
	for i, cc := range rev.CCs {
		got[i] = string(cc)
	}

	if strings.Join(got, ",") != strings.Join(expect, ",") {
		return &ExpectationError{
			Type:     "ccs",
			Expected: fmt.Sprintf("%v", expect),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}
