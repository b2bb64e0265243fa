package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/herald/internal/engine"
	"github.com/roach88/herald/internal/ir"
)

func runApplyCmd(t *testing.T, format string, tokens engine.CycleTokenGenerator, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format, Config: testConfig()}
	cmd := newApplyCommand(rootOpts, tokens)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestApplyText(t *testing.T) {
	dbPath := seededDB(t)

	out, err := runApplyCmd(t, "text", engine.NewSequenceGenerator("cycle-1"),
		"--db", dbPath, "--revision", "42", "--diff", "7", "testdata/effects.cue")
	require.NoError(t, err)

	assert.Contains(t, out, "Cycle: cycle-1")
	assert.Contains(t, out, "Revision: D42 (diff 7)")
	assert.Contains(t, out, "[1] ✓ apply-build-plans Applied build plans.")
	assert.Contains(t, out, "[2] ✓ add-reviewers Added reviewers.")
	assert.Contains(t, out, `  1. "PHID-HMBP-1"`)
	assert.Contains(t, out, `  2. "PHID-HMBP-2"`)
	assert.Contains(t, out, "=== Emails ===\n  PHID-USER-carol")
	assert.Contains(t, out, "PHID-HRUL-4: Parser changes need a fuzz run.")
}

func TestApplyJSONAndPersistence(t *testing.T) {
	dbPath := seededDB(t)

	out, err := runApplyCmd(t, "json", engine.NewSequenceGenerator("cycle-1"),
		"--db", dbPath, "--revision", "42", "--diff", "7", "testdata/effects.cue")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			CycleToken  string            `json:"cycle_token"`
			Transcripts []json.RawMessage `json:"transcripts"`
			BuildPlans  []string          `json:"build_plans"`
			Emails      []string          `json:"emails"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cycle-1", resp.Data.CycleToken)
	assert.Len(t, resp.Data.Transcripts, 4)
	assert.Equal(t, []string{"PHID-HMBP-1", "PHID-HMBP-2"}, resp.Data.BuildPlans)
	assert.Equal(t, []string{"PHID-USER-carol"}, resp.Data.Emails)

	st := openDB(t, dbPath)
	ctx := context.Background()

	transcripts, err := st.ReadTranscripts(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Len(t, transcripts, 4)

	queue, err := st.ReadBuildPlanQueue(ctx, "cycle-1")
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, int64(7), queue[0].DiffID)
	assert.Equal(t, ir.PHID("PHID-DREV-42"), queue[0].RevisionPHID)

	revs, err := st.QueryRevisions(ctx, ir.RevisionQuery{
		IDs:                []int64{42},
		Actor:              ir.NewSystemActor("PHID-USER-herald"),
		NeedReviewerStatus: true,
	})
	require.NoError(t, err)
	require.Len(t, revs, 1)
	require.Len(t, revs[0].Reviewers, 2)
	assert.Equal(t, ir.PHID("PHID-USER-bob"), revs[0].Reviewers[1].ReviewerPHID)
}

func TestApplyResumesClock(t *testing.T) {
	dbPath := seededDB(t)
	tokens := engine.NewSequenceGenerator("cycle-1", "cycle-2")

	_, err := runApplyCmd(t, "text", tokens, "--db", dbPath, "--revision", "42", "--diff", "7", "testdata/effects.cue")
	require.NoError(t, err)
	_, err = runApplyCmd(t, "text", tokens, "--db", dbPath, "--revision", "42", "--diff", "7", "testdata/effects.cue")
	require.NoError(t, err)

	st := openDB(t, dbPath)
	second, err := st.ReadTranscripts(context.Background(), "cycle-2")
	require.NoError(t, err)
	require.Len(t, second, 4)
	assert.Equal(t, int64(5), second[0].Seq)
	assert.Equal(t, int64(8), second[3].Seq)
}

func TestApplyDiffNotFound(t *testing.T) {
	dbPath := seededDB(t)

	out, err := runApplyCmd(t, "json", engine.NewSequenceGenerator("cycle-x"),
		"--db", dbPath, "--revision", "42", "--diff", "999", "testdata/effects.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, engine.ErrCodeDiffNotFound, engine.CodeOf(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeCycleFailed, resp.Error.Code)

	st := openDB(t, dbPath)
	transcripts, err := st.ReadTranscripts(context.Background(), "cycle-x")
	require.NoError(t, err)
	assert.Empty(t, transcripts)
}

func TestApplyCompileError(t *testing.T) {
	dbPath := seededDB(t)

	_, err := runApplyCmd(t, "text", nil, "--db", dbPath, "--revision", "42", "--diff", "7", "testdata/broken.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestApplyBadDatabase(t *testing.T) {
	_, err := runApplyCmd(t, "text", nil, "--db", "/nonexistent/path/herald.db", "--revision", "42", "--diff", "7", "testdata/effects.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestApplyDefaultTokens(t *testing.T) {
	dbPath := seededDB(t)

	out, _, err := execute(t, "apply", "--db", dbPath, "--revision", "42", "--diff", "7", "--format", "json", "testdata/effects.cue")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			CycleToken string `json:"cycle_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data.CycleToken, 36, "UUID token")
}
