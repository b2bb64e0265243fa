package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/herald/internal/differential"
	"github.com/roach88/herald/internal/ir"
)

func validationCodes(errs []ValidationError) []string {
	var codes []string
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	return codes
}

func TestValidateEffectsValid(t *testing.T) {
	a := differential.New(differential.Sources{})
	effects := []ir.Effect{
		{Action: ir.ActionApplyBuildPlans, Target: ir.Strings("PHID-HMBP-1")},
		{Action: ir.ActionAddReviewers, Target: ir.Strings("PHID-USER-1")},
		{Action: ir.ActionComment, Target: ir.String("Looks risky.")},
		{Action: ir.ActionNothing, Target: ir.Null{}},
	}

	assert.Empty(t, ValidateEffects(a, ir.RuleTypeGlobal, effects))
}

func TestValidateEffectsUnsupportedScope(t *testing.T) {
	a := differential.New(differential.Sources{})

	errs := ValidateEffects(a, ir.RuleTypeObject, []ir.Effect{{Action: ir.ActionNothing}})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedRuleType, errs[0].Code)
	assert.Equal(t, -1, errs[0].Index)
}

func TestValidateEffectsPersonalScope(t *testing.T) {
	a := differential.New(differential.Sources{})
	effects := []ir.Effect{
		{Action: ir.ActionApplyBuildPlans, Target: ir.Strings("PHID-HMBP-1")},
		{Action: ir.ActionFlag, Target: ir.String("red")},
		{Action: ir.ActionComment, Target: ir.String("hi")},
	}

	errs := ValidateEffects(a, ir.RuleTypePersonal, effects)
	require.Len(t, errs, 2)
	assert.Equal(t, []string{ErrActionNotAllowed, ErrActionNotAllowed}, validationCodes(errs))
	assert.Equal(t, 0, errs[0].Index)
	assert.Equal(t, 2, errs[1].Index)
}

func TestValidateEffectsCollectsAll(t *testing.T) {
	a := differential.New(differential.Sources{})
	effects := []ir.Effect{
		{Action: "frobnicate"},
		{Action: ir.ActionAddCC, Target: ir.Array{ir.Bool(true)}},
		{Action: ir.ActionComment, Target: ir.String("")},
		{Action: ir.ActionFlag, Target: ir.Int(3)},
	}

	errs := ValidateEffects(a, ir.RuleTypeGlobal, effects)
	assert.Equal(t, []string{
		ErrUnknownAction,
		ErrInvalidTarget,
		ErrInvalidTarget,
		ErrActionNotAllowed,
		ErrInvalidTarget,
	}, validationCodes(errs))
	assert.Equal(t, "effects[1].target", errs[1].Field)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "effects[0].action", Message: `unknown action "x"`, Code: ErrUnknownAction}
	assert.Equal(t, `[E101] effects[0].action: unknown action "x"`, err.Error())
}
