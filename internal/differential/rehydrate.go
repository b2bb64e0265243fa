package differential

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/herald/internal/ir"
)

var (
	// ErrRevisionNotFound means no revision matched the identifier.
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrRevisionAmbiguous means more than one revision matched.
	ErrRevisionAmbiguous = errors.New("revision identifier is ambiguous")

	// ErrUntrustedActor means rehydration was attempted with a non-system actor.
	ErrUntrustedActor = errors.New("rehydration requires the system actor")
)

// NewLegacyAdapter builds a fully populated adapter for background
// evaluation of revisionID against diff.
//
// The revision is reloaded as actor, which must be a system actor, with
// relationship and reviewer-status data preloaded; the caller's copy of
// the revision, if any, is never trusted for that data. Fails unless
// exactly one revision matches.
func NewLegacyAdapter(
	ctx context.Context,
	src Sources,
	actor ir.Actor,
	revisionID int64,
	diff ir.Diff,
) (*RevisionAdapter, error) {
	if !actor.System {
		return nil, fmt.Errorf("rehydrate revision %d as %q: %w", revisionID, actor.PHID, ErrUntrustedActor)
	}

	revisions, err := src.Revisions.QueryRevisions(ctx, ir.RevisionQuery{
		IDs:                []int64{revisionID},
		Actor:              actor,
		NeedRelationships:  true,
		NeedReviewerStatus: true,
	})
	if err != nil {
		return nil, fmt.Errorf("rehydrate revision %d: %w", revisionID, err)
	}

	switch len(revisions) {
	case 0:
		return nil, fmt.Errorf("rehydrate revision %d: %w", revisionID, ErrRevisionNotFound)
	case 1:
	default:
		return nil, fmt.Errorf("rehydrate revision %d: %d matches: %w", revisionID, len(revisions), ErrRevisionAmbiguous)
	}

	a := New(src)
	a.revision = revisions[0]
	a.SetDiff(diff)
	return a, nil
}
