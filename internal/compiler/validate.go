package compiler

import (
	"fmt"

	"github.com/roach88/herald/internal/adapter"
	"github.com/roach88/herald/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedRuleType = "E100" // adapter does not accept rules of this type
	ErrUnknownAction       = "E101" // action outside the known set
	ErrActionNotAllowed    = "E102" // action not offered for the rule type
	ErrInvalidTarget       = "E103" // target shape the action cannot apply
)

// ValidationError represents an effect that would not apply cleanly.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Index   int    `json:"index"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateEffects checks effects against the actions a offers to rules
// of ruleType. Returns all errors found (does not fail-fast).
//
// Invalid effects still apply: the adapter reports them as unapplied
// transcripts. Validation surfaces them before a cycle runs.
func ValidateEffects(a adapter.Adapter, ruleType ir.RuleType, effects []ir.Effect) []ValidationError {
	if !a.SupportsRuleType(ruleType) {
		return []ValidationError{{
			Field:   "scope",
			Message: fmt.Sprintf("%s does not support %s rules", a.ContentType(), ruleType),
			Code:    ErrUnsupportedRuleType,
			Index:   -1,
		}}
	}

	var errs []ValidationError
	for i, effect := range effects {
		field := fmt.Sprintf("effects[%d]", i)

		if !effect.Action.Known() {
			errs = append(errs, ValidationError{
				Field:   field + ".action",
				Message: fmt.Sprintf("unknown action %q", effect.Action),
				Code:    ErrUnknownAction,
				Index:   i,
			})
			continue
		}

		if !adapter.SupportsAction(a, ruleType, effect.Action) {
			errs = append(errs, ValidationError{
				Field:   field + ".action",
				Message: fmt.Sprintf("action %q is not available to %s rules", effect.Action, ruleType),
				Code:    ErrActionNotAllowed,
				Index:   i,
			})
		}

		if msg := checkTarget(effect); msg != "" {
			errs = append(errs, ValidationError{
				Field:   field + ".target",
				Message: msg,
				Code:    ErrInvalidTarget,
				Index:   i,
			})
		}
	}

	return errs
}

func checkTarget(effect ir.Effect) string {
	switch effect.Action {
	case ir.ActionAddCC, ir.ActionRemoveCC, ir.ActionEmail,
		ir.ActionAddReviewers, ir.ActionAddBlockingReviewers:
		if _, err := ir.AsPHIDs(effect.Target); err != nil {
			return err.Error()
		}
	case ir.ActionComment:
		if s, ok := effect.Target.(ir.String); !ok || s == "" {
			return "comment target must be non-empty text"
		}
	case ir.ActionFlag:
		switch effect.Target.(type) {
		case nil, ir.Null, ir.String:
		default:
			return fmt.Sprintf("flag target must be a color, got %T", effect.Target)
		}
	}
	return ""
}
