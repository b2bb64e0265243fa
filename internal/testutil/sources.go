// Package testutil provides deterministic helpers and counting data-source
// stubs for herald tests.
package testutil

import (
	"context"
	"slices"
	"strings"

	"github.com/roach88/herald/internal/ir"
)

// StubSources is an in-memory implementation of every data-access
// capability a revision adapter consumes. Each method counts its calls so
// tests can assert memoization.
//
// Not safe for concurrent use.
type StubSources struct {
	Changesets []*ir.Changeset
	Hunks      map[int64][]ir.Hunk // changeset ID -> hunks
	Repository *ir.Repository      // nil = revision has no repository
	Packages   []ir.OwnersPackage
	Revisions  []ir.Revision

	// Err, when set, is returned by every method.
	Err error

	ChangesetCalls  int
	HunkCalls       int
	RepositoryCalls int
	PackageCalls    int
	RevisionCalls   int

	LastQuery ir.RevisionQuery
	LastPaths []string
}

// LoadChangesets returns the stub changesets. The same slice is returned on
// every call so callers can detect refetches by call count alone.
func (s *StubSources) LoadChangesets(ctx context.Context, diff ir.Diff) ([]*ir.Changeset, error) {
	s.ChangesetCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Changesets, nil
}

// AttachHunks attaches stub hunks by changeset ID.
func (s *StubSources) AttachHunks(ctx context.Context, changesets []*ir.Changeset) error {
	s.HunkCalls++
	if s.Err != nil {
		return s.Err
	}
	for _, c := range changesets {
		c.Hunks = s.Hunks[c.ID]
		c.HunksAttached = true
	}
	return nil
}

// LoadRepository returns the stub repository.
func (s *StubSources) LoadRepository(ctx context.Context, revision *ir.Revision) (*ir.Repository, error) {
	s.RepositoryCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Repository, nil
}

// LoadAffectedPackages returns stub packages claiming any of paths by prefix.
func (s *StubSources) LoadAffectedPackages(ctx context.Context, repo *ir.Repository, paths []string) ([]ir.OwnersPackage, error) {
	s.PackageCalls++
	s.LastPaths = paths
	if s.Err != nil {
		return nil, s.Err
	}

	var out []ir.OwnersPackage
	for _, pkg := range s.Packages {
		if pkg.RepositoryPHID != repo.PHID {
			continue
		}
		if slices.ContainsFunc(paths, func(p string) bool { return claims(pkg, p) }) {
			out = append(out, pkg)
		}
	}
	return out, nil
}

// QueryRevisions returns copies of every stub revision whose ID is listed,
// with relationship flags set as the query requested.
func (s *StubSources) QueryRevisions(ctx context.Context, q ir.RevisionQuery) ([]*ir.Revision, error) {
	s.RevisionCalls++
	s.LastQuery = q
	if s.Err != nil {
		return nil, s.Err
	}

	var out []*ir.Revision
	for _, rev := range s.Revisions {
		if !slices.Contains(q.IDs, rev.ID) {
			continue
		}
		r := rev
		r.Reviewers = nil
		r.CCs = nil
		if q.NeedReviewerStatus {
			r.Reviewers = slices.Clone(rev.Reviewers)
			r.ReviewerStatusLoaded = true
		}
		if q.NeedRelationships {
			r.CCs = slices.Clone(rev.CCs)
			r.RelationshipsLoaded = true
		}
		out = append(out, &r)
	}
	return out, nil
}

func claims(pkg ir.OwnersPackage, path string) bool {
	for _, prefix := range pkg.Paths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
