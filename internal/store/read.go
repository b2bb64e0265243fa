package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/herald/internal/adapter"
	"github.com/roach88/herald/internal/differential"
	"github.com/roach88/herald/internal/ir"
)

var (
	_ differential.ChangesetSource  = (*Store)(nil)
	_ differential.RepositorySource = (*Store)(nil)
	_ differential.PackageSource    = (*Store)(nil)
	_ differential.RevisionQuerier  = (*Store)(nil)
)

// Sources bundles the store's data-access capabilities for
// differential.NewLegacyAdapter with the given standard applier.
func (s *Store) Sources(standard adapter.StandardApplier) differential.Sources {
	return differential.Sources{
		Changesets:   s,
		Repositories: s,
		Packages:     s,
		Revisions:    s,
		Standard:     standard,
	}
}

// QueryRevisions returns the revisions matching q, ordered by ID.
//
// IDs and PHIDs are ORed; an empty query matches every revision the actor
// can see. Reviewer edges and CCs are only loaded when requested.
func (s *Store) QueryRevisions(ctx context.Context, q ir.RevisionQuery) ([]*ir.Revision, error) {
	var (
		where []string
		args  []any
	)

	var ids []string
	for _, id := range q.IDs {
		ids = append(ids, "r.id = ?")
		args = append(args, id)
	}
	for _, phid := range q.PHIDs {
		ids = append(ids, "r.phid = ?")
		args = append(args, string(phid))
	}
	if len(ids) > 0 {
		where = append(where, "("+strings.Join(ids, " OR ")+")")
	}

	if !q.Actor.System {
		where = append(where, `(r.author_phid = ? OR EXISTS (
			SELECT 1 FROM revision_reviewers rr
			WHERE rr.revision_id = r.id AND rr.reviewer_phid = ?))`)
		args = append(args, string(q.Actor.PHID), string(q.Actor.PHID))
	}

	query := `
		SELECT r.id, r.phid, r.title, r.summary, r.author_phid, COALESCE(r.repository_phid, ''), r.status
		FROM revisions r`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY r.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revisions := []*ir.Revision{}
	for rows.Next() {
		var rev ir.Revision
		var author, repo string
		if err := rows.Scan(&rev.ID, &rev.PHID, &rev.Title, &rev.Summary, &author, &repo, &rev.Status); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		rev.AuthorPHID = ir.PHID(author)
		rev.RepositoryPHID = ir.PHID(repo)
		revisions = append(revisions, &rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	// Close before issuing edge queries; the pool has a single connection.
	rows.Close()

	for _, rev := range revisions {
		if q.NeedReviewerStatus {
			if rev.Reviewers, err = s.loadReviewers(ctx, rev.ID); err != nil {
				return nil, err
			}
			rev.ReviewerStatusLoaded = true
		}
		if q.NeedRelationships {
			if rev.CCs, err = s.loadCCs(ctx, rev.ID); err != nil {
				return nil, err
			}
			rev.RelationshipsLoaded = true
		}
	}

	return revisions, nil
}

func (s *Store) loadReviewers(ctx context.Context, revisionID int64) ([]ir.ReviewerStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reviewer_phid, status, blocking
		FROM revision_reviewers
		WHERE revision_id = ?
		ORDER BY position ASC, reviewer_phid COLLATE BINARY ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("query reviewers of revision %d: %w", revisionID, err)
	}
	defer rows.Close()

	reviewers := []ir.ReviewerStatus{}
	for rows.Next() {
		var rs ir.ReviewerStatus
		var phid string
		var blocking int
		if err := rows.Scan(&phid, &rs.Status, &blocking); err != nil {
			return nil, fmt.Errorf("scan reviewer: %w", err)
		}
		rs.ReviewerPHID = ir.PHID(phid)
		rs.Blocking = blocking != 0
		reviewers = append(reviewers, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviewers: %w", err)
	}
	return reviewers, nil
}

func (s *Store) loadCCs(ctx context.Context, revisionID int64) ([]ir.PHID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cc_phid
		FROM revision_ccs
		WHERE revision_id = ?
		ORDER BY position ASC, cc_phid COLLATE BINARY ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("query ccs of revision %d: %w", revisionID, err)
	}
	defer rows.Close()

	ccs := []ir.PHID{}
	for rows.Next() {
		var phid string
		if err := rows.Scan(&phid); err != nil {
			return nil, fmt.Errorf("scan cc: %w", err)
		}
		ccs = append(ccs, ir.PHID(phid))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ccs: %w", err)
	}
	return ccs, nil
}

// LoadDiff retrieves a diff by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) LoadDiff(ctx context.Context, id int64) (ir.Diff, error) {
	var d ir.Diff
	var phid string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, phid, revision_id, base_revision
		FROM diffs
		WHERE id = ?
	`, id).Scan(&d.ID, &phid, &d.RevisionID, &d.SourceControlBaseRevision)
	if err != nil {
		return ir.Diff{}, err
	}
	d.PHID = ir.PHID(phid)
	return d, nil
}

// LoadChangesets implements differential.ChangesetSource.
// Returns an empty slice, not nil, for a diff with no changesets.
func (s *Store) LoadChangesets(ctx context.Context, diff ir.Diff) ([]*ir.Changeset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, diff_id, filename, old_filename, change_type
		FROM changesets
		WHERE diff_id = ?
		ORDER BY id ASC
	`, diff.ID)
	if err != nil {
		return nil, fmt.Errorf("query changesets: %w", err)
	}
	defer rows.Close()

	changesets := []*ir.Changeset{}
	for rows.Next() {
		var c ir.Changeset
		if err := rows.Scan(&c.ID, &c.DiffID, &c.Filename, &c.OldFilename, &c.ChangeType); err != nil {
			return nil, fmt.Errorf("scan changeset: %w", err)
		}
		changesets = append(changesets, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changesets: %w", err)
	}
	return changesets, nil
}

// AttachHunks implements differential.ChangesetSource.
// Hunks for all changesets are fetched in one query.
func (s *Store) AttachHunks(ctx context.Context, changesets []*ir.Changeset) error {
	if len(changesets) == 0 {
		return nil
	}

	byID := make(map[int64]*ir.Changeset, len(changesets))
	placeholders := make([]string, 0, len(changesets))
	args := make([]any, 0, len(changesets))
	for _, c := range changesets {
		byID[c.ID] = c
		placeholders = append(placeholders, "?")
		args = append(args, c.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT changeset_id, old_offset, old_len, new_offset, new_len, corpus
		FROM hunks
		WHERE changeset_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY changeset_id ASC, new_offset ASC, id ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("query hunks: %w", err)
	}
	defer rows.Close()

	for _, c := range changesets {
		c.Hunks = []ir.Hunk{}
		c.HunksAttached = true
	}
	for rows.Next() {
		var id int64
		var h ir.Hunk
		if err := rows.Scan(&id, &h.OldOffset, &h.OldLen, &h.NewOffset, &h.NewLen, &h.Corpus); err != nil {
			return fmt.Errorf("scan hunk: %w", err)
		}
		byID[id].Hunks = append(byID[id].Hunks, h)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate hunks: %w", err)
	}
	return nil
}

// LoadRepository implements differential.RepositorySource.
// Returns nil, nil when the revision has no repository.
func (s *Store) LoadRepository(ctx context.Context, revision *ir.Revision) (*ir.Repository, error) {
	if revision == nil || revision.RepositoryPHID == "" {
		return nil, nil
	}

	var repo ir.Repository
	var phid string
	err := s.db.QueryRowContext(ctx, `
		SELECT phid, callsign, name
		FROM repositories
		WHERE phid = ?
	`, string(revision.RepositoryPHID)).Scan(&phid, &repo.Callsign, &repo.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query repository %s: %w", revision.RepositoryPHID, err)
	}
	repo.PHID = ir.PHID(phid)
	return &repo, nil
}

// LoadAffectedPackages implements differential.PackageSource.
//
// A package is affected when one of its paths is an affected path or a
// directory containing one. Paths are compared with a leading "/" on both sides. Results are
// ordered by package PHID.
func (s *Store) LoadAffectedPackages(ctx context.Context, repo *ir.Repository, paths []string) ([]ir.OwnersPackage, error) {
	if repo == nil || len(paths) == 0 {
		return []ir.OwnersPackage{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.phid, p.name, op.path
		FROM owners_packages p
		JOIN owners_paths op ON op.package_phid = p.phid
		WHERE p.repository_phid = ?
		ORDER BY p.phid COLLATE BINARY ASC, op.path COLLATE BINARY ASC
	`, string(repo.PHID))
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()

	normalized := make([]string, len(paths))
	for i, p := range paths {
		normalized[i] = normalizePath(p)
	}

	byPHID := make(map[ir.PHID]*ir.OwnersPackage)
	var order []ir.PHID
	for rows.Next() {
		var phid, name, path string
		if err := rows.Scan(&phid, &name, &path); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		pkg, ok := byPHID[ir.PHID(phid)]
		if !ok {
			pkg = &ir.OwnersPackage{PHID: ir.PHID(phid), Name: name, RepositoryPHID: repo.PHID}
			byPHID[pkg.PHID] = pkg
			order = append(order, pkg.PHID)
		}
		pkg.Paths = append(pkg.Paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}

	affected := []ir.OwnersPackage{}
	for _, phid := range order {
		pkg := byPHID[phid]
		if ownsAny(pkg.Paths, normalized) {
			affected = append(affected, *pkg)
		}
	}
	return affected, nil
}

func ownsAny(prefixes, paths []string) bool {
	for _, prefix := range prefixes {
		for _, p := range paths {
			if ownsPath(prefix, p) {
				return true
			}
		}
	}
	return false
}

// ownsPath reports whether prefix owns p on a directory boundary:
// "/lib" owns "/lib" and "/lib/x.go" but not "/library/x.go".
func ownsPath(prefix, p string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || strings.HasSuffix(prefix, "/") || p[len(prefix)] == '/'
}

func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// ReadTranscripts returns the transcripts of one cycle.
// Results are ordered by seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) for an unknown cycle.
func (s *Store) ReadTranscripts(ctx context.Context, cycleToken string) ([]ir.Transcript, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, effect_index, rule_phid, action, target, applied, reason, seq
		FROM transcripts
		WHERE cycle_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, cycleToken)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := []ir.Transcript{}
	for rows.Next() {
		var tr ir.Transcript
		var rule, action, targetJSON string
		var applied int
		if err := rows.Scan(&tr.ID, &tr.EffectIndex, &rule, &action, &targetJSON, &applied, &tr.Reason, &tr.Seq); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		target, err := unmarshalValue(targetJSON)
		if err != nil {
			return nil, fmt.Errorf("transcript %s: %w", tr.ID, err)
		}
		tr.RulePHID = ir.PHID(rule)
		tr.Action = ir.ActionKind(action)
		tr.Target = target
		tr.Applied = applied != 0
		transcripts = append(transcripts, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	return transcripts, nil
}

// QueuedBuildPlan is one entry of the build-plan queue.
type QueuedBuildPlan struct {
	CycleToken   string   `json:"cycle_token"`
	RevisionPHID ir.PHID  `json:"revision_phid"`
	DiffID       int64    `json:"diff_id"`
	Position     int      `json:"position"`
	Plan         ir.Value `json:"plan"`
}

// ReadBuildPlanQueue returns the build plans queued by one cycle, in
// emission order.
func (s *Store) ReadBuildPlanQueue(ctx context.Context, cycleToken string) ([]QueuedBuildPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_token, revision_phid, diff_id, position, plan
		FROM build_plan_queue
		WHERE cycle_token = ?
		ORDER BY position ASC
	`, cycleToken)
	if err != nil {
		return nil, fmt.Errorf("query build plan queue: %w", err)
	}
	defer rows.Close()

	queue := []QueuedBuildPlan{}
	for rows.Next() {
		var q QueuedBuildPlan
		var rev, planJSON string
		if err := rows.Scan(&q.CycleToken, &rev, &q.DiffID, &q.Position, &planJSON); err != nil {
			return nil, fmt.Errorf("scan build plan: %w", err)
		}
		plan, err := unmarshalValue(planJSON)
		if err != nil {
			return nil, fmt.Errorf("build plan %d: %w", q.Position, err)
		}
		q.RevisionPHID = ir.PHID(rev)
		q.Plan = plan
		queue = append(queue, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build plan queue: %w", err)
	}
	return queue, nil
}

// LastSeq returns the highest transcript seq in the store, or 0 if empty.
// Cycle runners resume their logical clock from it.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM transcripts`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

// CycleSummary is the recorded event of one cycle.
type CycleSummary struct {
	CycleToken string `json:"cycle_token"`
	RevisionID int64  `json:"revision_id"`
	DiffID     int64  `json:"diff_id"`
	Effects    int    `json:"effects"`
}

// LoadCycle returns the recorded event of one cycle.
// Returns sql.ErrNoRows if the cycle was never written.
func (s *Store) LoadCycle(ctx context.Context, cycleToken string) (CycleSummary, error) {
	c := CycleSummary{CycleToken: cycleToken}
	err := s.db.QueryRowContext(ctx, `
		SELECT revision_id, diff_id, effects
		FROM cycles
		WHERE cycle_token = ?
	`, cycleToken).Scan(&c.RevisionID, &c.DiffID, &c.Effects)
	if err != nil {
		return CycleSummary{}, err
	}
	return c, nil
}

// ListCycles returns the recorded cycle tokens in the order they were
// written. Cycles that applied no effects are included.
func (s *Store) ListCycles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_token
		FROM cycles
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	return tokens, nil
}
