package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/herald/internal/ir"
)

// Fixture is a YAML description of revision data to load into a store.
// Used by `herald seed` and by harness scenarios.
type Fixture struct {
	Repositories []FixtureRepository `yaml:"repositories,omitempty"`
	Revisions    []FixtureRevision   `yaml:"revisions,omitempty"`
	Diffs        []FixtureDiff       `yaml:"diffs,omitempty"`
	Packages     []FixturePackage    `yaml:"packages,omitempty"`
}

// FixtureRepository is a repository row.
type FixtureRepository struct {
	PHID     string `yaml:"phid"`
	Callsign string `yaml:"callsign,omitempty"`
	Name     string `yaml:"name"`
}

// FixtureRevision is a revision with its reviewer and CC edges.
type FixtureRevision struct {
	ID         int64             `yaml:"id"`
	PHID       string            `yaml:"phid"`
	Title      string            `yaml:"title"`
	Summary    string            `yaml:"summary,omitempty"`
	Author     string            `yaml:"author"`
	Repository string            `yaml:"repository,omitempty"`
	Status     string            `yaml:"status,omitempty"`
	Reviewers  []FixtureReviewer `yaml:"reviewers,omitempty"`
	CCs        []string          `yaml:"ccs,omitempty"`
}

// FixtureReviewer is one reviewer edge. Status defaults to "added".
type FixtureReviewer struct {
	PHID     string `yaml:"phid"`
	Status   string `yaml:"status,omitempty"`
	Blocking bool   `yaml:"blocking,omitempty"`
}

// FixtureDiff is a diff with its changesets.
type FixtureDiff struct {
	ID         int64              `yaml:"id"`
	PHID       string             `yaml:"phid"`
	Revision   int64              `yaml:"revision"`
	Base       string             `yaml:"base,omitempty"`
	Changesets []FixtureChangeset `yaml:"changesets,omitempty"`
}

// FixtureChangeset is a changeset with its hunks. Type defaults to "change".
type FixtureChangeset struct {
	ID      int64         `yaml:"id"`
	Path    string        `yaml:"path"`
	OldPath string        `yaml:"old_path,omitempty"`
	Type    string        `yaml:"type,omitempty"`
	Hunks   []FixtureHunk `yaml:"hunks,omitempty"`
}

// FixtureHunk is one hunk.
type FixtureHunk struct {
	OldOffset int64  `yaml:"old_offset"`
	OldLen    int64  `yaml:"old_len"`
	NewOffset int64  `yaml:"new_offset"`
	NewLen    int64  `yaml:"new_len"`
	Corpus    string `yaml:"corpus,omitempty"`
}

// FixturePackage is an owners package with its path prefixes.
type FixturePackage struct {
	PHID       string   `yaml:"phid"`
	Name       string   `yaml:"name"`
	Repository string   `yaml:"repository"`
	Paths      []string `yaml:"paths"`
}

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses YAML fixture data. Unknown fields are rejected.
func ParseFixture(data []byte) (Fixture, error) {
	var f Fixture
	if err := decodeStrict(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Seed writes every fixture row. Rows are written parents first so
// foreign keys hold: repositories, revisions, diffs, changesets, hunks,
// packages.
func (s *Store) Seed(ctx context.Context, f Fixture) error {
	for _, r := range f.Repositories {
		repo := ir.Repository{PHID: ir.PHID(r.PHID), Callsign: r.Callsign, Name: r.Name}
		if err := s.WriteRepository(ctx, repo); err != nil {
			return err
		}
	}

	for _, r := range f.Revisions {
		if err := s.WriteRevision(ctx, r.toRevision()); err != nil {
			return err
		}
	}

	for _, d := range f.Diffs {
		diff := ir.Diff{
			ID:                        d.ID,
			PHID:                      ir.PHID(d.PHID),
			RevisionID:                d.Revision,
			SourceControlBaseRevision: d.Base,
		}
		if err := s.WriteDiff(ctx, diff); err != nil {
			return err
		}
		for _, c := range d.Changesets {
			if err := s.seedChangeset(ctx, d.ID, c); err != nil {
				return err
			}
		}
	}

	for _, p := range f.Packages {
		pkg := ir.OwnersPackage{
			PHID:           ir.PHID(p.PHID),
			Name:           p.Name,
			RepositoryPHID: ir.PHID(p.Repository),
			Paths:          p.Paths,
		}
		if err := s.WritePackage(ctx, pkg); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) seedChangeset(ctx context.Context, diffID int64, c FixtureChangeset) error {
	changeType := c.Type
	if changeType == "" {
		changeType = ir.ChangeTypeChange
	}
	cs := ir.Changeset{
		ID:          c.ID,
		DiffID:      diffID,
		Filename:    c.Path,
		OldFilename: c.OldPath,
		ChangeType:  changeType,
	}
	if err := s.WriteChangeset(ctx, cs); err != nil {
		return err
	}
	for _, h := range c.Hunks {
		hunk := ir.Hunk{
			OldOffset: h.OldOffset,
			OldLen:    h.OldLen,
			NewOffset: h.NewOffset,
			NewLen:    h.NewLen,
			Corpus:    h.Corpus,
		}
		if err := s.WriteHunk(ctx, c.ID, hunk); err != nil {
			return err
		}
	}
	return nil
}

func (r FixtureRevision) toRevision() ir.Revision {
	rev := ir.Revision{
		ID:             r.ID,
		PHID:           ir.PHID(r.PHID),
		Title:          r.Title,
		Summary:        r.Summary,
		AuthorPHID:     ir.PHID(r.Author),
		RepositoryPHID: ir.PHID(r.Repository),
		Status:         r.Status,
	}
	for _, rv := range r.Reviewers {
		status := rv.Status
		if status == "" {
			status = ir.ReviewerStatusAdded
		}
		rev.Reviewers = append(rev.Reviewers, ir.ReviewerStatus{
			ReviewerPHID: ir.PHID(rv.PHID),
			Status:       status,
			Blocking:     rv.Blocking,
		})
	}
	for _, cc := range r.CCs {
		rev.CCs = append(rev.CCs, ir.PHID(cc))
	}
	return rev
}
