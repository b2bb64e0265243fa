package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/herald/internal/ir"
)

// fakeAdapter supports global rules only.
type fakeAdapter struct{}

func (fakeAdapter) Object() Object             { return plainObject{} }
func (fakeAdapter) ContentType() string        { return "fake" }
func (fakeAdapter) ContentName() string        { return "Fakes" }
func (fakeAdapter) ContentDescription() string { return "React to fakes." }
func (fakeAdapter) HeraldName() string         { return "fake one" }

func (fakeAdapter) SupportsRuleType(rt ir.RuleType) bool { return rt == ir.RuleTypeGlobal }

func (fakeAdapter) RepetitionOptions() []ir.RepetitionPolicy {
	return []ir.RepetitionPolicy{ir.RepeatEvery}
}

func (fakeAdapter) Actions(rt ir.RuleType) []ir.ActionKind { return StandardActions(rt) }

func (fakeAdapter) ApplyEffects(effects []ir.Effect) []ir.Transcript { return nil }

func TestStandardActions(t *testing.T) {
	global := StandardActions(ir.RuleTypeGlobal)
	personal := StandardActions(ir.RuleTypePersonal)

	assert.Contains(t, global, ir.ActionComment)
	assert.NotContains(t, global, ir.ActionFlag)
	assert.Contains(t, personal, ir.ActionFlag)
	assert.NotContains(t, personal, ir.ActionComment)
	assert.NotContains(t, global, ir.ActionApplyBuildPlans)
	assert.Nil(t, StandardActions(ir.RuleTypeObject))
	assert.Nil(t, StandardActions("bogus"))
}

func TestSupportsAction(t *testing.T) {
	a := fakeAdapter{}
	assert.True(t, SupportsAction(a, ir.RuleTypeGlobal, ir.ActionAddCC))
	assert.False(t, SupportsAction(a, ir.RuleTypeGlobal, ir.ActionFlag))
	assert.False(t, SupportsAction(a, ir.RuleTypeObject, ir.ActionAddCC))
}

func TestDescribe(t *testing.T) {
	d := Describe(fakeAdapter{})

	assert.Equal(t, "fake", d.ContentType)
	assert.Equal(t, "Fakes", d.ContentName)
	assert.Equal(t, []ir.RuleType{ir.RuleTypeGlobal}, d.RuleTypes)
	assert.Equal(t, []ir.RepetitionPolicy{ir.RepeatEvery}, d.RepetitionOptions)
	assert.Len(t, d.Actions, 1)
	assert.Equal(t, StandardActions(ir.RuleTypeGlobal), d.Actions[ir.RuleTypeGlobal])
}

func TestStandardApplierFunc(t *testing.T) {
	var called bool
	f := StandardApplierFunc(func(object Object, effect ir.Effect) ir.Transcript {
		called = true
		return ir.NewTranscript(effect, true, "ok")
	})

	tr := f.ApplyStandardEffect(plainObject{}, ir.Effect{Action: "x"})
	assert.True(t, called)
	assert.Equal(t, "ok", tr.Reason)
}
