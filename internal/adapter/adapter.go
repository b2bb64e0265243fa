package adapter

import (
	"github.com/roach88/herald/internal/ir"
)

// Object is an automatable entity bound to an adapter.
type Object interface {
	ObjectPHID() ir.PHID
}

// Adapter is the contract an automatable object type implements.
//
// Descriptive methods are pure. SupportsRuleType and Actions return the
// zero value (false / nil) for rule types the adapter does not know.
type Adapter interface {
	// Object returns the bound object. Never nil once constructed.
	Object() Object

	// ContentType is the stable machine name, e.g. "differential".
	ContentType() string

	// ContentName is the human-readable type name.
	ContentName() string

	// ContentDescription explains what rules on this type can do.
	ContentDescription() string

	// HeraldName is the display name of the bound object.
	HeraldName() string

	// SupportsRuleType reports whether rules of this type may target the object.
	SupportsRuleType(ruleType ir.RuleType) bool

	// RepetitionOptions lists allowed repetition policies in display order.
	// The rule engine validates rule configuration against it.
	RepetitionOptions() []ir.RepetitionPolicy

	// Actions lists the actions rules of ruleType may take.
	Actions(ruleType ir.RuleType) []ir.ActionKind

	// ApplyEffects applies effects in order and returns exactly one
	// transcript per effect, in the same order. It never fails; failures
	// are reported as unapplied transcripts.
	ApplyEffects(effects []ir.Effect) []ir.Transcript
}

// StandardApplier applies the actions shared by all object types.
// It must return a transcript for every effect, including effects whose
// action it does not handle.
type StandardApplier interface {
	ApplyStandardEffect(object Object, effect ir.Effect) ir.Transcript
}

// StandardApplierFunc adapts a function to StandardApplier.
type StandardApplierFunc func(object Object, effect ir.Effect) ir.Transcript

// ApplyStandardEffect calls f(object, effect).
func (f StandardApplierFunc) ApplyStandardEffect(object Object, effect ir.Effect) ir.Transcript {
	return f(object, effect)
}

// StandardActions returns the standard actions available to ruleType.
//
// Personal rules act privately for their author, so they may flag but not
// comment; global rules may comment but not flag. Object rules get nothing.
func StandardActions(ruleType ir.RuleType) []ir.ActionKind {
	switch ruleType {
	case ir.RuleTypeGlobal:
		return []ir.ActionKind{
			ir.ActionAddCC,
			ir.ActionRemoveCC,
			ir.ActionEmail,
			ir.ActionAddReviewers,
			ir.ActionAddBlockingReviewers,
			ir.ActionComment,
			ir.ActionNothing,
		}
	case ir.RuleTypePersonal:
		return []ir.ActionKind{
			ir.ActionAddCC,
			ir.ActionRemoveCC,
			ir.ActionEmail,
			ir.ActionFlag,
			ir.ActionAddReviewers,
			ir.ActionAddBlockingReviewers,
			ir.ActionNothing,
		}
	default:
		return nil
	}
}

// SupportsAction reports whether a lists action for ruleType.
func SupportsAction(a Adapter, ruleType ir.RuleType, action ir.ActionKind) bool {
	for _, k := range a.Actions(ruleType) {
		if k == action {
			return true
		}
	}
	return false
}

// Descriptor is a serializable snapshot of an adapter's static metadata.
type Descriptor struct {
	ContentType       string                          `json:"content_type"`
	ContentName       string                          `json:"content_name"`
	Description       string                          `json:"description"`
	RuleTypes         []ir.RuleType                   `json:"rule_types"`
	RepetitionOptions []ir.RepetitionPolicy           `json:"repetition_options"`
	Actions           map[ir.RuleType][]ir.ActionKind `json:"actions"`
}

// Describe collects the static metadata of a.
func Describe(a Adapter) Descriptor {
	d := Descriptor{
		ContentType:       a.ContentType(),
		ContentName:       a.ContentName(),
		Description:       a.ContentDescription(),
		RepetitionOptions: a.RepetitionOptions(),
		Actions:           make(map[ir.RuleType][]ir.ActionKind),
	}
	for _, rt := range ir.RuleTypes {
		if !a.SupportsRuleType(rt) {
			continue
		}
		d.RuleTypes = append(d.RuleTypes, rt)
		d.Actions[rt] = a.Actions(rt)
	}
	return d
}
