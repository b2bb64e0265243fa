package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/herald/internal/ir"
)

func sealedTranscripts(t *testing.T, cycleToken string, seqStart int64) []ir.Transcript {
	t.Helper()
	trs := []ir.Transcript{
		{EffectIndex: 0, RulePHID: "PHID-HRUL-1", Action: ir.ActionApplyBuildPlans, Target: ir.Array{ir.Int(42)}, Applied: true, Reason: "Applied build plans."},
		{EffectIndex: 1, Action: ir.ActionKind("unknown-action"), Target: ir.String("X"), Reason: `No rules to handle action "unknown-action".`},
	}
	for i := range trs {
		trs[i].Seq = seqStart + int64(i)
		require.NoError(t, trs[i].Seal(cycleToken))
	}
	return trs
}

// cycleRecord builds a record for revision 1 of the seeded fixture.
func cycleRecord(t *testing.T, s *Store, cycleToken string, seqStart int64) CycleRecord {
	t.Helper()
	revs, err := s.QueryRevisions(context.Background(), ir.RevisionQuery{
		IDs:                []int64{1},
		Actor:              ir.NewSystemActor("PHID-USER-herald"),
		NeedRelationships:  true,
		NeedReviewerStatus: true,
	})
	require.NoError(t, err)
	require.Len(t, revs, 1)
	return CycleRecord{
		CycleToken:  cycleToken,
		Revision:    *revs[0],
		DiffID:      10,
		Transcripts: sealedTranscripts(t, cycleToken, seqStart),
	}
}

func TestWriteCycle_RoundTrip(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()
	c := cycleRecord(t, s, "cycle-1", 1)

	require.NoError(t, s.WriteCycle(ctx, c))

	got, err := s.ReadTranscripts(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, c.Transcripts, got)

	summary, err := s.LoadCycle(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, CycleSummary{CycleToken: "cycle-1", RevisionID: 1, DiffID: 10, Effects: 2}, summary)
}

func TestWriteCycle_Idempotent(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()
	c := cycleRecord(t, s, "cycle-1", 1)

	require.NoError(t, s.WriteCycle(ctx, c))
	require.NoError(t, s.WriteCycle(ctx, c))

	got, err := s.ReadTranscripts(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWriteCycle_RetryKeepsFirstTranscripts(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()
	first := cycleRecord(t, s, "cycle-1", 1)
	require.NoError(t, s.WriteCycle(ctx, first))

	// Same token, later clock: new seqs and IDs for the same effect indexes.
	retry := cycleRecord(t, s, "cycle-1", 3)
	require.NotEqual(t, first.Transcripts[0].ID, retry.Transcripts[0].ID)
	require.NoError(t, s.WriteCycle(ctx, retry))

	got, err := s.ReadTranscripts(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, first.Transcripts, got)

	cycles, err := s.ListCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cycle-1"}, cycles)
}

func TestWriteCycle_RequiresSeal(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()
	c := cycleRecord(t, s, "cycle-1", 1)
	c.Transcripts = []ir.Transcript{{Action: ir.ActionNothing, Target: ir.Null{}}}

	err := s.WriteCycle(ctx, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not sealed")

	got, err := s.ReadTranscripts(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.LoadCycle(ctx, "cycle-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWriteCycle_RollsBackOnQueueFailure(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()
	c := cycleRecord(t, s, "cycle-1", 1)
	c.BuildPlans = []ir.Value{ir.String("P1")}
	c.Revision.CCs = nil

	_, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER queue_down BEFORE INSERT ON build_plan_queue
		BEGIN SELECT RAISE(ABORT, 'queue down'); END
	`)
	require.NoError(t, err)

	err = s.WriteCycle(ctx, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue down")

	got, err := s.ReadTranscripts(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	cycles, err := s.ListCycles(ctx)
	require.NoError(t, err)
	assert.Empty(t, cycles)

	revs, err := s.QueryRevisions(ctx, ir.RevisionQuery{
		IDs:               []int64{1},
		Actor:             ir.NewSystemActor("PHID-USER-herald"),
		NeedRelationships: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []ir.PHID{"PHID-USER-carol"}, revs[0].CCs, "CC edges are rolled back")
}

func TestReadTranscripts_UnknownCycle(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadTranscripts(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadCycle_Unknown(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadCycle(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLastSeqAndListCycles(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, s.WriteCycle(ctx, cycleRecord(t, s, "cycle-b", 1)))
	require.NoError(t, s.WriteCycle(ctx, cycleRecord(t, s, "cycle-a", 3)))

	empty := cycleRecord(t, s, "cycle-empty", 0)
	empty.Transcripts = nil
	require.NoError(t, s.WriteCycle(ctx, empty))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)

	cycles, err := s.ListCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cycle-b", "cycle-a", "cycle-empty"}, cycles)
}

func TestWriteCycle_QueuePreservesOrderAndDuplicates(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()
	plans := []ir.Value{ir.String("P1"), ir.String("P2"), ir.String("P2"), ir.Int(42)}
	c := cycleRecord(t, s, "cycle-1", 1)
	c.BuildPlans = plans

	require.NoError(t, s.WriteCycle(ctx, c))

	queue, err := s.ReadBuildPlanQueue(ctx, "cycle-1")
	require.NoError(t, err)
	require.Len(t, queue, 4)
	for i, q := range queue {
		assert.Equal(t, i, q.Position)
		assert.Equal(t, plans[i], q.Plan)
		assert.Equal(t, ir.PHID("PHID-DREV-1"), q.RevisionPHID)
		assert.Equal(t, int64(10), q.DiffID)
	}
}

func TestWriteCycle_NoBuildPlans(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteCycle(ctx, cycleRecord(t, s, "cycle-1", 1)))

	queue, err := s.ReadBuildPlanQueue(ctx, "cycle-1")
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestWriteRevision_ReplacesEdges(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	revs, err := s.QueryRevisions(ctx, ir.RevisionQuery{
		IDs: []int64{1}, Actor: systemActor, NeedRelationships: true, NeedReviewerStatus: true,
	})
	require.NoError(t, err)
	rev := *revs[0]
	rev.AddReviewers([]ir.PHID{"PHID-USER-dave"}, false)
	rev.RemoveCCs([]ir.PHID{"PHID-USER-carol"})
	rev.AddCCs([]ir.PHID{"PHID-USER-erin"})

	require.NoError(t, s.WriteRevision(ctx, rev))

	revs, err = s.QueryRevisions(ctx, ir.RevisionQuery{
		IDs: []int64{1}, Actor: systemActor, NeedRelationships: true, NeedReviewerStatus: true,
	})
	require.NoError(t, err)
	require.Len(t, revs[0].Reviewers, 3)
	assert.Equal(t, ir.PHID("PHID-USER-dave"), revs[0].Reviewers[2].ReviewerPHID)
	assert.Equal(t, []ir.PHID{"PHID-USER-erin"}, revs[0].CCs)
}

func TestWriteDiff_RequiresRevision(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteDiff(context.Background(), ir.Diff{ID: 1, PHID: "PHID-DIFF-1", RevisionID: 99})
	assert.Error(t, err, "foreign keys are enforced")
}

func TestParseFixture_RejectsUnknownFields(t *testing.T) {
	_, err := ParseFixture([]byte("revisions:\n  - id: 1\n    colour: red\n"))
	assert.Error(t, err)
}

func TestParseFixture_Empty(t *testing.T) {
	f, err := ParseFixture(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Revisions)
}
