package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/herald/internal/ir"
)

// WriteRepository inserts or replaces a repository.
func (s *Store) WriteRepository(ctx context.Context, repo ir.Repository) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories (phid, callsign, name)
		VALUES (?, ?, ?)
		ON CONFLICT(phid) DO UPDATE SET callsign = excluded.callsign, name = excluded.name
	`, string(repo.PHID), repo.Callsign, repo.Name)
	if err != nil {
		return fmt.Errorf("write repository %s: %w", repo.PHID, err)
	}
	return nil
}

// WriteRevision inserts or updates a revision and replaces its reviewer
// and CC edges with rev.Reviewers and rev.CCs, in one transaction.
func (s *Store) WriteRevision(ctx context.Context, rev ir.Revision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeRevision(ctx, tx, rev); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func writeRevision(ctx context.Context, tx *sql.Tx, rev ir.Revision) error {
	var repoPHID sql.NullString
	if rev.RepositoryPHID != "" {
		repoPHID = sql.NullString{String: string(rev.RepositoryPHID), Valid: true}
	}
	status := rev.Status
	if status == "" {
		status = "needs-review"
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (id, phid, title, summary, author_phid, repository_phid, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phid = excluded.phid,
			title = excluded.title,
			summary = excluded.summary,
			author_phid = excluded.author_phid,
			repository_phid = excluded.repository_phid,
			status = excluded.status
	`, rev.ID, string(rev.PHID), rev.Title, rev.Summary, string(rev.AuthorPHID), repoPHID, status)
	if err != nil {
		return fmt.Errorf("write revision %d: %w", rev.ID, err)
	}

	if err := replaceEdges(ctx, tx, rev); err != nil {
		return fmt.Errorf("write revision %d: %w", rev.ID, err)
	}
	return nil
}

func replaceEdges(ctx context.Context, tx *sql.Tx, rev ir.Revision) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM revision_reviewers WHERE revision_id = ?`, rev.ID); err != nil {
		return fmt.Errorf("clear reviewers: %w", err)
	}
	for i, rs := range rev.Reviewers {
		status := rs.Status
		if status == "" {
			status = ir.ReviewerStatusAdded
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO revision_reviewers (revision_id, reviewer_phid, status, blocking, position)
			VALUES (?, ?, ?, ?, ?)
		`, rev.ID, string(rs.ReviewerPHID), status, boolToInt(rs.Blocking), i)
		if err != nil {
			return fmt.Errorf("insert reviewer %s: %w", rs.ReviewerPHID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM revision_ccs WHERE revision_id = ?`, rev.ID); err != nil {
		return fmt.Errorf("clear ccs: %w", err)
	}
	for i, cc := range rev.CCs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO revision_ccs (revision_id, cc_phid, position)
			VALUES (?, ?, ?)
		`, rev.ID, string(cc), i)
		if err != nil {
			return fmt.Errorf("insert cc %s: %w", cc, err)
		}
	}
	return nil
}

// WriteDiff inserts a diff. Diffs are immutable; rewriting one is a no-op.
// The owning revision must exist.
func (s *Store) WriteDiff(ctx context.Context, diff ir.Diff) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diffs (id, phid, revision_id, base_revision)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, diff.ID, string(diff.PHID), diff.RevisionID, diff.SourceControlBaseRevision)
	if err != nil {
		return fmt.Errorf("write diff %d: %w", diff.ID, err)
	}
	return nil
}

// WriteChangeset inserts a changeset, without its hunks.
func (s *Store) WriteChangeset(ctx context.Context, cs ir.Changeset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO changesets (id, diff_id, filename, old_filename, change_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, cs.ID, cs.DiffID, cs.Filename, cs.OldFilename, cs.ChangeType)
	if err != nil {
		return fmt.Errorf("write changeset %d: %w", cs.ID, err)
	}
	return nil
}

// WriteHunk appends a hunk to a changeset.
func (s *Store) WriteHunk(ctx context.Context, changesetID int64, h ir.Hunk) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hunks (changeset_id, old_offset, old_len, new_offset, new_len, corpus)
		VALUES (?, ?, ?, ?, ?, ?)
	`, changesetID, h.OldOffset, h.OldLen, h.NewOffset, h.NewLen, h.Corpus)
	if err != nil {
		return fmt.Errorf("write hunk for changeset %d: %w", changesetID, err)
	}
	return nil
}

// WritePackage inserts or replaces an owners package and its paths.
func (s *Store) WritePackage(ctx context.Context, pkg ir.OwnersPackage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO owners_packages (phid, name, repository_phid)
		VALUES (?, ?, ?)
		ON CONFLICT(phid) DO UPDATE SET name = excluded.name, repository_phid = excluded.repository_phid
	`, string(pkg.PHID), pkg.Name, string(pkg.RepositoryPHID))
	if err != nil {
		return fmt.Errorf("write package %s: %w", pkg.PHID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM owners_paths WHERE package_phid = ?`, string(pkg.PHID)); err != nil {
		return fmt.Errorf("clear package paths: %w", err)
	}
	for _, path := range pkg.Paths {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO owners_paths (package_phid, path) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, string(pkg.PHID), normalizePath(path))
		if err != nil {
			return fmt.Errorf("insert package path %q: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CycleRecord is everything one evaluation cycle persists.
type CycleRecord struct {
	CycleToken  string
	Revision    ir.Revision
	DiffID      int64
	Transcripts []ir.Transcript
	BuildPlans  []ir.Value
}

// WriteCycle records a cycle, appends its transcripts, queues its build
// plans and writes back the revision's reviewer and CC edges in one
// transaction. Either all of it is stored or none of it is.
//
// Every transcript must be sealed. A cycle token is written once: a retry
// under a token already in the log keeps the rows first written for it
// and only rewrites the revision.
func (s *Store) WriteCycle(ctx context.Context, c CycleRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycles (cycle_token, revision_id, diff_id, effects)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cycle_token) DO NOTHING
	`, c.CycleToken, c.Revision.ID, c.DiffID, len(c.Transcripts))
	if err != nil {
		return fmt.Errorf("write cycle %s: %w", c.CycleToken, err)
	}

	if err := writeTranscripts(ctx, tx, c.CycleToken, c.Transcripts); err != nil {
		return err
	}
	if err := enqueueBuildPlans(ctx, tx, c.CycleToken, c.Revision.PHID, c.DiffID, c.BuildPlans); err != nil {
		return err
	}
	if err := writeRevision(ctx, tx, c.Revision); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// writeTranscripts appends the transcripts of one cycle.
// The first row written for a (cycle_token, effect_index) pair wins.
func writeTranscripts(ctx context.Context, tx *sql.Tx, cycleToken string, transcripts []ir.Transcript) error {
	for _, tr := range transcripts {
		if tr.ID == "" {
			return fmt.Errorf("write transcript %d: transcript is not sealed", tr.EffectIndex)
		}
		targetJSON, err := marshalValue(tr.Target)
		if err != nil {
			return fmt.Errorf("write transcript %d: %w", tr.EffectIndex, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO transcripts
			(id, cycle_token, effect_index, rule_phid, action, target, applied, reason, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(cycle_token, effect_index) DO NOTHING
		`,
			tr.ID,
			cycleToken,
			tr.EffectIndex,
			string(tr.RulePHID),
			string(tr.Action),
			targetJSON,
			boolToInt(tr.Applied),
			tr.Reason,
			tr.Seq,
		)
		if err != nil {
			return fmt.Errorf("write transcript %d: %w", tr.EffectIndex, err)
		}
	}
	return nil
}

// enqueueBuildPlans appends plans to the build-plan queue for one cycle,
// preserving order and duplicates.
func enqueueBuildPlans(ctx context.Context, tx *sql.Tx, cycleToken string, revisionPHID ir.PHID, diffID int64, plans []ir.Value) error {
	for i, plan := range plans {
		planJSON, err := marshalValue(plan)
		if err != nil {
			return fmt.Errorf("enqueue build plan %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO build_plan_queue (cycle_token, revision_phid, diff_id, position, plan)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(cycle_token, position) DO NOTHING
		`, cycleToken, string(revisionPHID), diffID, i, planJSON)
		if err != nil {
			return fmt.Errorf("enqueue build plan %d: %w", i, err)
		}
	}
	return nil
}
