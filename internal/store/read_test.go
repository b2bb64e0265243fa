package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/herald/internal/adapter"
	"github.com/roach88/herald/internal/differential"
	"github.com/roach88/herald/internal/ir"
)

var systemActor = ir.NewSystemActor("PHID-USER-herald")

func TestQueryRevisions_SystemActorWithRelationships(t *testing.T) {
	s := createSeededStore(t)

	revs, err := s.QueryRevisions(context.Background(), ir.RevisionQuery{
		IDs:                []int64{1},
		Actor:              systemActor,
		NeedRelationships:  true,
		NeedReviewerStatus: true,
	})
	require.NoError(t, err)
	require.Len(t, revs, 1)

	rev := revs[0]
	assert.Equal(t, ir.PHID("PHID-DREV-1"), rev.PHID)
	assert.Equal(t, ir.PHID("PHID-REPO-core"), rev.RepositoryPHID)
	assert.Equal(t, "needs-review", rev.Status)
	assert.True(t, rev.HasRelationships())
	assert.Equal(t, []ir.ReviewerStatus{
		{ReviewerPHID: "PHID-USER-alice", Status: ir.ReviewerStatusAccepted},
		{ReviewerPHID: "PHID-USER-bob", Status: ir.ReviewerStatusAdded, Blocking: true},
	}, rev.Reviewers)
	assert.Equal(t, []ir.PHID{"PHID-USER-carol"}, rev.CCs)
}

func TestQueryRevisions_WithoutRelationships(t *testing.T) {
	s := createSeededStore(t)

	revs, err := s.QueryRevisions(context.Background(), ir.RevisionQuery{IDs: []int64{1}, Actor: systemActor})
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.False(t, revs[0].ReviewerStatusLoaded)
	assert.False(t, revs[0].RelationshipsLoaded)
	assert.Nil(t, revs[0].Reviewers)
}

func TestQueryRevisions_ViewerVisibility(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		viewer ir.PHID
		want   []int64
	}{
		{"author", "PHID-USER-author", []int64{1}},
		{"reviewer", "PHID-USER-bob", []int64{1}},
		{"stranger", "PHID-USER-eve", nil},
		{"other author", "PHID-USER-other", []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revs, err := s.QueryRevisions(ctx, ir.RevisionQuery{Actor: ir.NewViewer(tt.viewer)})
			require.NoError(t, err)

			var got []int64
			for _, r := range revs {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryRevisions_ByPHID(t *testing.T) {
	s := createSeededStore(t)

	revs, err := s.QueryRevisions(context.Background(), ir.RevisionQuery{
		PHIDs: []ir.PHID{"PHID-DREV-2"},
		Actor: systemActor,
	})
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, int64(2), revs[0].ID)
	assert.Empty(t, revs[0].RepositoryPHID)
}

func TestQueryRevisions_NoMatch(t *testing.T) {
	s := createSeededStore(t)

	revs, err := s.QueryRevisions(context.Background(), ir.RevisionQuery{IDs: []int64{99}, Actor: systemActor})
	require.NoError(t, err)
	assert.NotNil(t, revs)
	assert.Empty(t, revs)
}

func TestLoadDiff(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	d, err := s.LoadDiff(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ir.Diff{ID: 10, PHID: "PHID-DIFF-10", RevisionID: 1, SourceControlBaseRevision: "abc123"}, d)

	_, err = s.LoadDiff(ctx, 404)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLoadChangesetsAndHunks(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	cs, err := s.LoadChangesets(ctx, ir.Diff{ID: 10})
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "src/frob/count.go", cs[0].Filename)
	assert.Equal(t, "docs/old.md", cs[1].OldFilename)
	assert.Equal(t, ir.ChangeTypeMoveTo, cs[1].ChangeType)
	assert.False(t, cs[0].HunksAttached)

	require.NoError(t, s.AttachHunks(ctx, cs))
	require.Len(t, cs[0].Hunks, 1)
	assert.Equal(t, int64(3), cs[0].Hunks[0].NewLen)
	assert.True(t, cs[1].HunksAttached)
	assert.Empty(t, cs[1].Hunks)
}

func TestLoadChangesets_EmptyDiff(t *testing.T) {
	s := createSeededStore(t)

	cs, err := s.LoadChangesets(context.Background(), ir.Diff{ID: 20})
	require.NoError(t, err)
	assert.NotNil(t, cs)
	assert.Empty(t, cs)
}

func TestLoadRepository(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	repo, err := s.LoadRepository(ctx, &ir.Revision{RepositoryPHID: "PHID-REPO-core"})
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, "CORE", repo.Callsign)

	none, err := s.LoadRepository(ctx, &ir.Revision{})
	require.NoError(t, err)
	assert.Nil(t, none)

	missing, err := s.LoadRepository(ctx, &ir.Revision{RepositoryPHID: "PHID-REPO-gone"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLoadAffectedPackages(t *testing.T) {
	s := createSeededStore(t)
	repo := &ir.Repository{PHID: "PHID-REPO-core"}

	pkgs, err := s.LoadAffectedPackages(context.Background(), repo, []string{"src/frob/count.go", "docs/old.md"})
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, ir.PHID("PHID-OPKG-docs"), pkgs[0].PHID)
	assert.Equal(t, []string{"/docs/"}, pkgs[0].Paths)
	assert.Equal(t, ir.PHID("PHID-OPKG-frob"), pkgs[1].PHID)
}

func TestLoadAffectedPackages_DirectoryBoundary(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()
	require.NoError(t, s.WritePackage(ctx, ir.OwnersPackage{
		PHID:           "PHID-OPKG-lib",
		Name:           "lib",
		RepositoryPHID: "PHID-REPO-core",
		Paths:          []string{"/lib"},
	}))
	repo := &ir.Repository{PHID: "PHID-REPO-core"}

	pkgs, err := s.LoadAffectedPackages(ctx, repo, []string{"library/x.go"})
	require.NoError(t, err)
	assert.Empty(t, pkgs, "/lib must not own /library")

	for _, path := range []string{"lib", "lib/x.go", "/lib/sub/y.go"} {
		pkgs, err := s.LoadAffectedPackages(ctx, repo, []string{path})
		require.NoError(t, err)
		require.Len(t, pkgs, 1, path)
		assert.Equal(t, ir.PHID("PHID-OPKG-lib"), pkgs[0].PHID)
	}
}

func TestOwnsPath(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   bool
	}{
		{"/lib", "/lib", true},
		{"/lib", "/lib/x.go", true},
		{"/lib", "/library/x.go", false},
		{"/lib/", "/lib/x.go", true},
		{"/lib/", "/lib", false},
		{"/", "/anything.go", true},
		{"/src/frob/", "/src/frobnicate.go", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ownsPath(tt.prefix, tt.path), "%s owns %s", tt.prefix, tt.path)
	}
}

func TestLoadAffectedPackages_NoPaths(t *testing.T) {
	s := createSeededStore(t)

	pkgs, err := s.LoadAffectedPackages(context.Background(), &ir.Repository{PHID: "PHID-REPO-core"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, pkgs)
	assert.Empty(t, pkgs)
}

func TestStore_BacksLegacyAdapter(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	diff, err := s.LoadDiff(ctx, 10)
	require.NoError(t, err)
	a, err := differential.NewLegacyAdapter(ctx, s.Sources(adapter.NewStandard()), systemActor, 1, diff)
	require.NoError(t, err)

	reviewers, err := a.LoadReviewers()
	require.NoError(t, err)
	assert.Equal(t, []ir.PHID{"PHID-USER-alice", "PHID-USER-bob"}, reviewers)

	paths, err := a.LoadAffectedPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/frob/count.go", "docs/frob.md", "docs/old.md"}, paths)

	pkgs, err := a.LoadAffectedPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)

	cs, err := a.LoadChangesetsWithHunks(ctx)
	require.NoError(t, err)
	assert.Len(t, cs[0].Hunks, 1)
}
