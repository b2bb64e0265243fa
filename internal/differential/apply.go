package differential

import (
	"fmt"

	"github.com/roach88/herald/internal/ir"
)

// appliedBuildPlans is the transcript reason for apply-build-plans effects.
const appliedBuildPlans = "Applied build plans."

// revisionAction is the closed set of actions this adapter handles itself.
// Every kind it does not list is delegated to the standard applier.
type revisionAction int

const (
	actionDelegate revisionAction = iota
	actionApplyBuildPlans
)

func classify(kind ir.ActionKind) revisionAction {
	switch kind {
	case ir.ActionApplyBuildPlans:
		return actionApplyBuildPlans
	default:
		return actionDelegate
	}
}

// ApplyEffects implements adapter.Adapter.
//
// Effects are applied in the given order and each yields exactly one
// transcript at the same index. Nothing is rolled back if a later effect
// fails. Applying no effects returns an empty, non-nil slice.
func (a *RevisionAdapter) ApplyEffects(effects []ir.Effect) []ir.Transcript {
	result := make([]ir.Transcript, 0, len(effects))

	for i, effect := range effects {
		var tr ir.Transcript
		switch classify(effect.Action) {
		case actionApplyBuildPlans:
			tr = a.applyBuildPlans(effect)
		case actionDelegate:
			tr = a.applyStandardEffect(effect)
		}
		tr.EffectIndex = i
		result = append(result, tr)
	}

	return result
}

// applyBuildPlans queues every target identifier. Identifiers are not
// deduplicated or checked against real plans; the build system owns that.
func (a *RevisionAdapter) applyBuildPlans(effect ir.Effect) ir.Transcript {
	a.buildPlans = append(a.buildPlans, ir.Elements(effect.Target)...)
	return ir.NewTranscript(effect, true, appliedBuildPlans)
}

func (a *RevisionAdapter) applyStandardEffect(effect ir.Effect) ir.Transcript {
	if a.src.Standard == nil {
		return ir.NewTranscript(effect, false,
			fmt.Sprintf("No standard effect handler for action %q.", effect.Action))
	}
	return a.src.Standard.ApplyStandardEffect(a.revision, effect)
}
