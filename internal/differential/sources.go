package differential

import (
	"context"

	"github.com/roach88/herald/internal/adapter"
	"github.com/roach88/herald/internal/ir"
)

// ChangesetSource loads the changesets of a diff and their hunks.
type ChangesetSource interface {
	// LoadChangesets returns the changesets of diff, without hunks.
	LoadChangesets(ctx context.Context, diff ir.Diff) ([]*ir.Changeset, error)

	// AttachHunks loads hunks for every changeset and attaches them in place.
	AttachHunks(ctx context.Context, changesets []*ir.Changeset) error
}

// RepositorySource resolves the repository a revision belongs to.
type RepositorySource interface {
	// LoadRepository returns nil, nil when the revision has no repository.
	LoadRepository(ctx context.Context, revision *ir.Revision) (*ir.Repository, error)
}

// PackageSource resolves owners packages claiming paths in a repository.
type PackageSource interface {
	LoadAffectedPackages(ctx context.Context, repo *ir.Repository, paths []string) ([]ir.OwnersPackage, error)
}

// RevisionQuerier loads revisions from the authoritative store.
type RevisionQuerier interface {
	QueryRevisions(ctx context.Context, q ir.RevisionQuery) ([]*ir.Revision, error)
}

// Sources bundles the data-access capabilities a RevisionAdapter reads
// through, plus the standard applier it delegates to.
type Sources struct {
	Changesets   ChangesetSource
	Repositories RepositorySource
	Packages     PackageSource
	Revisions    RevisionQuerier
	Standard     adapter.StandardApplier
}
