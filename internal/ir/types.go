package ir

// PHID is a stable, globally unique object identifier
// (e.g. "PHID-DREV-abc", "PHID-USER-xyz").
type PHID string

// Reviewer status values.
const (
	ReviewerStatusAdded    = "added"
	ReviewerStatusAccepted = "accepted"
	ReviewerStatusRejected = "rejected"
	ReviewerStatusResigned = "resigned"
)

// Revision is the automatable code-review object.
//
// CCs are only meaningful when RelationshipsLoaded is true and Reviewers
// only when ReviewerStatusLoaded is true; the store sets each flag when the
// query asked for that data.
type Revision struct {
	ID             int64            `json:"id"`
	PHID           PHID             `json:"phid"`
	Title          string           `json:"title"`
	Summary        string           `json:"summary,omitempty"`
	AuthorPHID     PHID             `json:"author_phid"`
	RepositoryPHID PHID             `json:"repository_phid,omitempty"` // Empty = no repository
	Status         string           `json:"status"`
	Reviewers      []ReviewerStatus `json:"reviewers,omitempty"`
	CCs            []PHID           `json:"ccs,omitempty"`

	RelationshipsLoaded  bool `json:"-"`
	ReviewerStatusLoaded bool `json:"-"`
}

// HasRelationships reports whether both reviewer and CC data were preloaded.
func (r *Revision) HasRelationships() bool {
	return r != nil && r.RelationshipsLoaded && r.ReviewerStatusLoaded
}

// ReviewerStatus is one reviewer edge of a revision.
type ReviewerStatus struct {
	ReviewerPHID PHID   `json:"reviewer_phid"`
	Status       string `json:"status"`
	Blocking     bool   `json:"blocking,omitempty"`
}

// Diff is an immutable snapshot of changes attached to a revision.
type Diff struct {
	ID                        int64  `json:"id"`
	PHID                      PHID   `json:"phid"`
	RevisionID                int64  `json:"revision_id"`
	SourceControlBaseRevision string `json:"source_control_base_revision,omitempty"`
}

// Changeset change types.
const (
	ChangeTypeAdd      = "add"
	ChangeTypeChange   = "change"
	ChangeTypeDelete   = "delete"
	ChangeTypeMoveTo   = "move_here"
	ChangeTypeCopyTo   = "copy_here"
	ChangeTypeMoveAway = "move_away"
)

// Changeset is one file-level change within a Diff.
// Hunks are only populated once AttachHunks has run for it.
type Changeset struct {
	ID          int64  `json:"id"`
	DiffID      int64  `json:"diff_id"`
	Filename    string `json:"filename"`
	OldFilename string `json:"old_filename,omitempty"`
	ChangeType  string `json:"change_type"`
	Hunks       []Hunk `json:"hunks,omitempty"`

	HunksAttached bool `json:"-"`
}

// AffectedPaths returns the repository paths touched by this changeset.
// Moves and copies also touch their source path.
func (c *Changeset) AffectedPaths() []string {
	if c.OldFilename != "" && c.OldFilename != c.Filename {
		return []string{c.Filename, c.OldFilename}
	}
	return []string{c.Filename}
}

// Hunk is one line-level region of a changeset.
type Hunk struct {
	OldOffset int64  `json:"old_offset"`
	OldLen    int64  `json:"old_len"`
	NewOffset int64  `json:"new_offset"`
	NewLen    int64  `json:"new_len"`
	Corpus    string `json:"corpus"`
}

// Repository is a hosted repository a revision may belong to.
type Repository struct {
	PHID     PHID   `json:"phid"`
	Callsign string `json:"callsign,omitempty"`
	Name     string `json:"name"`
}

// OwnersPackage claims ownership of path prefixes within a repository.
type OwnersPackage struct {
	PHID           PHID     `json:"phid"`
	Name           string   `json:"name"`
	RepositoryPHID PHID     `json:"repository_phid"`
	Paths          []string `json:"paths"`
}

// Actor identifies who a data-access call is performed on behalf of.
type Actor struct {
	PHID PHID `json:"phid"`

	// System is true only for the trusted, non-interactive actor used by
	// background evaluation. It bypasses viewer visibility filtering.
	System bool `json:"system"`
}

// NewViewer returns an ordinary, policy-filtered actor.
func NewViewer(phid PHID) Actor {
	return Actor{PHID: phid}
}

// NewSystemActor returns the elevated actor for trusted rehydration.
func NewSystemActor(phid PHID) Actor {
	return Actor{PHID: phid, System: true}
}

// ObjectPHID returns the revision's identifier.
func (r *Revision) ObjectPHID() PHID {
	return r.PHID
}

// AddReviewers adds reviewers not already present, in order.
// Returns the number of reviewers added.
func (r *Revision) AddReviewers(reviewers []PHID, blocking bool) int {
	seen := make(map[PHID]bool, len(r.Reviewers))
	for _, rs := range r.Reviewers {
		seen[rs.ReviewerPHID] = true
	}

	added := 0
	for _, phid := range reviewers {
		if seen[phid] || phid == r.AuthorPHID {
			continue
		}
		seen[phid] = true
		r.Reviewers = append(r.Reviewers, ReviewerStatus{
			ReviewerPHID: phid,
			Status:       ReviewerStatusAdded,
			Blocking:     blocking,
		})
		added++
	}
	return added
}

// AddCCs adds subscribers not already present. Returns the number added.
func (r *Revision) AddCCs(ccs []PHID) int {
	seen := make(map[PHID]bool, len(r.CCs))
	for _, cc := range r.CCs {
		seen[cc] = true
	}

	added := 0
	for _, phid := range ccs {
		if seen[phid] {
			continue
		}
		seen[phid] = true
		r.CCs = append(r.CCs, phid)
		added++
	}
	return added
}

// RemoveCCs removes the given subscribers. Returns the number removed.
func (r *Revision) RemoveCCs(ccs []PHID) int {
	drop := make(map[PHID]bool, len(ccs))
	for _, cc := range ccs {
		drop[cc] = true
	}

	kept := r.CCs[:0]
	removed := 0
	for _, cc := range r.CCs {
		if drop[cc] {
			removed++
			continue
		}
		kept = append(kept, cc)
	}
	r.CCs = kept
	return removed
}

// RevisionQuery selects revisions from the store.
type RevisionQuery struct {
	IDs   []int64
	PHIDs []PHID

	// Actor is the viewer the query runs as. Non-system actors only see
	// revisions they author or review.
	Actor Actor

	NeedRelationships  bool // Load CCs
	NeedReviewerStatus bool // Load reviewer edges with status
}
