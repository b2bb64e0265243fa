package differential

import (
	"github.com/roach88/herald/internal/adapter"
	"github.com/roach88/herald/internal/ir"
)

// ContentType is the machine name of revision rules.
const ContentType = "differential"

const contentDescription = "React to revisions being created or updated.\n" +
	"Revision rules can send email, flag revisions, add reviewers, " +
	"and run build plans."

// RevisionAdapter is the herald adapter for one revision and diff.
type RevisionAdapter struct {
	revision *ir.Revision
	diff     *ir.Diff
	src      Sources

	// buildPlans only grows during ApplyEffects; duplicates are kept.
	buildPlans []ir.Value

	cache relatedData
}

var _ adapter.Adapter = (*RevisionAdapter)(nil)

// New returns an adapter bound to a fresh, empty revision. Used by rule
// authoring surfaces that need the adapter's metadata but no live data.
func New(src Sources) *RevisionAdapter {
	return &RevisionAdapter{
		revision: &ir.Revision{},
		src:      src,
	}
}

// SetDiff binds the diff conditions read changesets from.
// Must be called before any load; the caches are not invalidated.
func (a *RevisionAdapter) SetDiff(diff ir.Diff) {
	a.diff = &diff
}

// Diff returns the bound diff, or nil.
func (a *RevisionAdapter) Diff() *ir.Diff {
	return a.diff
}

// Object implements adapter.Adapter.
func (a *RevisionAdapter) Object() adapter.Object {
	return a.revision
}

// Revision returns the bound revision.
func (a *RevisionAdapter) Revision() *ir.Revision {
	return a.revision
}

// ContentType implements adapter.Adapter.
func (a *RevisionAdapter) ContentType() string {
	return ContentType
}

// ContentName implements adapter.Adapter.
func (a *RevisionAdapter) ContentName() string {
	return "Differential Revisions"
}

// ContentDescription implements adapter.Adapter.
func (a *RevisionAdapter) ContentDescription() string {
	return contentDescription
}

// HeraldName implements adapter.Adapter.
func (a *RevisionAdapter) HeraldName() string {
	return a.revision.Title
}

// SupportsRuleType implements adapter.Adapter.
// Revisions have no natural owning object, so object rules are not
// supported.
func (a *RevisionAdapter) SupportsRuleType(ruleType ir.RuleType) bool {
	switch ruleType {
	case ir.RuleTypeGlobal, ir.RuleTypePersonal:
		return true
	default:
		return false
	}
}

// RepetitionOptions implements adapter.Adapter.
func (a *RevisionAdapter) RepetitionOptions() []ir.RepetitionPolicy {
	return []ir.RepetitionPolicy{ir.RepeatEvery, ir.RepeatFirst}
}

// Actions implements adapter.Adapter.
// Only global rules may apply build plans.
func (a *RevisionAdapter) Actions(ruleType ir.RuleType) []ir.ActionKind {
	switch ruleType {
	case ir.RuleTypeGlobal:
		return append([]ir.ActionKind{ir.ActionApplyBuildPlans}, adapter.StandardActions(ruleType)...)
	case ir.RuleTypePersonal:
		return adapter.StandardActions(ruleType)
	default:
		return nil
	}
}

// BuildPlans returns the build plan identifiers queued by ApplyEffects, in
// emission order. Identifiers are not validated.
func (a *RevisionAdapter) BuildPlans() []ir.Value {
	return a.buildPlans
}
