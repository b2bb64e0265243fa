package ir

// RuleType is the visibility/ownership class of a rule.
type RuleType string

const (
	RuleTypeGlobal   RuleType = "global"
	RuleTypePersonal RuleType = "personal"
	RuleTypeObject   RuleType = "object"
)

// RuleTypes lists every rule type in display order.
var RuleTypes = []RuleType{RuleTypeGlobal, RuleTypePersonal, RuleTypeObject}

// RepetitionPolicy controls how often a rule may re-fire against the same
// object across repeated events.
type RepetitionPolicy string

const (
	// RepeatEvery fires the rule every time its conditions match.
	RepeatEvery RepetitionPolicy = "every"

	// RepeatFirst fires the rule only the first time its conditions match.
	RepeatFirst RepetitionPolicy = "first"
)

// ActionKind names an effect action.
//
// The constants below are the closed set of kinds herald knows about. A
// value outside the set is still a legal Effect action; it is routed to the
// standard applier, which reports it as unhandled.
type ActionKind string

// Standard actions shared by every adapter type.
const (
	ActionNothing              ActionKind = "nothing"
	ActionAddCC                ActionKind = "add-cc"
	ActionRemoveCC             ActionKind = "remove-cc"
	ActionEmail                ActionKind = "email"
	ActionFlag                 ActionKind = "flag"
	ActionAddReviewers         ActionKind = "add-reviewers"
	ActionAddBlockingReviewers ActionKind = "add-blocking-reviewers"
	ActionComment              ActionKind = "comment"
)

// Object-specific actions.
const (
	// ActionApplyBuildPlans queues build plans for the revision's diff.
	ActionApplyBuildPlans ActionKind = "apply-build-plans"
)

var knownActions = map[ActionKind]bool{
	ActionNothing:              true,
	ActionAddCC:                true,
	ActionRemoveCC:             true,
	ActionEmail:                true,
	ActionFlag:                 true,
	ActionAddReviewers:         true,
	ActionAddBlockingReviewers: true,
	ActionComment:              true,
	ActionApplyBuildPlans:      true,
}

// Known reports whether k is one of the declared action kinds.
func (k ActionKind) Known() bool {
	return knownActions[k]
}

// Effect is one instruction produced by rule matching.
// Effects are immutable and consumed exactly once.
type Effect struct {
	RulePHID PHID       `json:"rule_phid,omitempty"`
	Action   ActionKind `json:"action"`
	Target   Value      `json:"target"`
	Reason   string     `json:"reason,omitempty"` // Why the rule matched, for the audit log
}

// Transcript is the audit record of one effect's application.
type Transcript struct {
	ID          string     `json:"id,omitempty"` // Content-addressed, set by Seal
	EffectIndex int        `json:"effect_index"`
	RulePHID    PHID       `json:"rule_phid,omitempty"`
	Action      ActionKind `json:"action"`
	Target      Value      `json:"target"`
	Applied     bool       `json:"applied"`
	Reason      string     `json:"reason"`
	Seq         int64      `json:"seq,omitempty"` // Logical clock, set by the cycle runner
}

// NewTranscript creates a transcript for effect.
func NewTranscript(effect Effect, applied bool, reason string) Transcript {
	target := effect.Target
	if target == nil {
		target = Null{}
	}
	return Transcript{
		RulePHID: effect.RulePHID,
		Action:   effect.Action,
		Target:   target,
		Applied:  applied,
		Reason:   reason,
	}
}
