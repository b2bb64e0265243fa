package differential

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/herald/internal/ir"
)

var (
	// ErrNoDiff is returned by changeset loads on an adapter with no diff bound.
	ErrNoDiff = errors.New("no diff bound to adapter")

	// ErrRelationshipsNotLoaded is returned when reviewer data was not
	// preloaded on the bound revision.
	ErrRelationshipsNotLoaded = errors.New("revision reviewer status not loaded")
)

// lazy holds a value that is computed at most once.
// The zero value is "not yet computed".
type lazy[T any] struct {
	value T
	done  bool
}

func (l *lazy[T]) get() (T, bool) {
	return l.value, l.done
}

func (l *lazy[T]) set(v T) T {
	l.value = v
	l.done = true
	return v
}

// relatedData memoizes derived collections for one adapter instance.
// A failed load leaves its slot unset so the next call retries.
type relatedData struct {
	changesets       lazy[[]*ir.Changeset]
	hunksAttached    bool
	affectedPaths    lazy[[]string]
	repository       lazy[*ir.Repository]
	affectedPackages lazy[[]ir.OwnersPackage]
}

// LoadChangesets returns the changesets of the bound diff. The first call
// fetches them; later calls return the same slice.
func (a *RevisionAdapter) LoadChangesets(ctx context.Context) ([]*ir.Changeset, error) {
	if cs, ok := a.cache.changesets.get(); ok {
		return cs, nil
	}
	if a.diff == nil {
		return nil, ErrNoDiff
	}

	cs, err := a.src.Changesets.LoadChangesets(ctx, *a.diff)
	if err != nil {
		return nil, fmt.Errorf("load changesets for diff %d: %w", a.diff.ID, err)
	}
	if cs == nil {
		cs = []*ir.Changeset{}
	}
	return a.cache.changesets.set(cs), nil
}

// LoadChangesetsWithHunks returns the changesets with hunks attached.
// Hunks are fetched at most once per adapter, and never for an empty diff.
func (a *RevisionAdapter) LoadChangesetsWithHunks(ctx context.Context) ([]*ir.Changeset, error) {
	cs, err := a.LoadChangesets(ctx)
	if err != nil {
		return nil, err
	}

	if len(cs) > 0 && !a.cache.hunksAttached {
		if err := a.src.Changesets.AttachHunks(ctx, cs); err != nil {
			return nil, fmt.Errorf("attach hunks: %w", err)
		}
		a.cache.hunksAttached = true
	}
	return cs, nil
}

// LoadAffectedPaths returns the distinct repository paths touched by the
// diff, in changeset order.
func (a *RevisionAdapter) LoadAffectedPaths(ctx context.Context) ([]string, error) {
	if paths, ok := a.cache.affectedPaths.get(); ok {
		return paths, nil
	}

	cs, err := a.LoadChangesets(ctx)
	if err != nil {
		return nil, err
	}

	paths := []string{}
	for _, c := range cs {
		for _, p := range c.AffectedPaths() {
			if !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
	}
	return a.cache.affectedPaths.set(paths), nil
}

// LoadRepository returns the revision's repository, or nil if it has none.
func (a *RevisionAdapter) LoadRepository(ctx context.Context) (*ir.Repository, error) {
	if repo, ok := a.cache.repository.get(); ok {
		return repo, nil
	}

	repo, err := a.src.Repositories.LoadRepository(ctx, a.revision)
	if err != nil {
		return nil, fmt.Errorf("load repository: %w", err)
	}
	return a.cache.repository.set(repo), nil
}

// LoadAffectedPackages returns the owners packages claiming any affected
// path. A revision with no repository has no packages; that empty result
// is cached like any other.
func (a *RevisionAdapter) LoadAffectedPackages(ctx context.Context) ([]ir.OwnersPackage, error) {
	if pkgs, ok := a.cache.affectedPackages.get(); ok {
		return pkgs, nil
	}

	repo, err := a.LoadRepository(ctx)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return a.cache.affectedPackages.set([]ir.OwnersPackage{}), nil
	}

	paths, err := a.LoadAffectedPaths(ctx)
	if err != nil {
		return nil, err
	}
	pkgs, err := a.src.Packages.LoadAffectedPackages(ctx, repo, paths)
	if err != nil {
		return nil, fmt.Errorf("load affected packages: %w", err)
	}
	if pkgs == nil {
		pkgs = []ir.OwnersPackage{}
	}
	return a.cache.affectedPackages.set(pkgs), nil
}

// LoadReviewers projects the revision's reviewer edges to reviewer PHIDs.
// It reads the preloaded relationship data and never fetches.
func (a *RevisionAdapter) LoadReviewers() ([]ir.PHID, error) {
	if !a.revision.ReviewerStatusLoaded {
		return nil, ErrRelationshipsNotLoaded
	}

	reviewers := make([]ir.PHID, 0, len(a.revision.Reviewers))
	for _, rs := range a.revision.Reviewers {
		reviewers = append(reviewers, rs.ReviewerPHID)
	}
	return reviewers, nil
}
