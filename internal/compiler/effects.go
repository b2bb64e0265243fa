package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/herald/internal/ir"
)

var effectFields = map[string]bool{
	"rule":   true,
	"action": true,
	"target": true,
	"reason": true,
}

// CompileEffects reads the top-level effects list of v into effects, in
// list order:
//
//	effects: [
//		{rule: "PHID-HRUL-1", action: "apply-build-plans", target: ["PHID-HMBP-1"]},
//		{action: "comment", target: "Please add tests."},
//	]
//
// Every element needs an action. A missing target compiles to null.
// Float values anywhere in a target are rejected.
func CompileEffects(v cue.Value) ([]ir.Effect, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	list := v.LookupPath(cue.ParsePath("effects"))
	if !list.Exists() {
		return nil, &CompileError{
			Field:   "effects",
			Message: "effects list is required",
			Pos:     v.Pos(),
		}
	}
	if list.IncompleteKind() != cue.ListKind {
		return nil, &CompileError{
			Field:   "effects",
			Message: fmt.Sprintf("effects must be a list, got %v", list.IncompleteKind()),
			Pos:     list.Pos(),
		}
	}

	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	effects := []ir.Effect{}
	for i := 0; iter.Next(); i++ {
		effect, err := compileEffect(i, iter.Value())
		if err != nil {
			return nil, err
		}
		effects = append(effects, effect)
	}
	return effects, nil
}

func compileEffect(i int, v cue.Value) (ir.Effect, error) {
	field := fmt.Sprintf("effects[%d]", i)
	if v.IncompleteKind() != cue.StructKind {
		return ir.Effect{}, &CompileError{
			Field:   field,
			Message: "effect must be a struct",
			Pos:     v.Pos(),
		}
	}

	fields, err := v.Fields()
	if err != nil {
		return ir.Effect{}, formatCUEError(err)
	}
	for fields.Next() {
		if label := fields.Selector().Unquoted(); !effectFields[label] {
			return ir.Effect{}, &CompileError{
				Field:   field + "." + label,
				Message: "unknown effect field",
				Pos:     fields.Value().Pos(),
			}
		}
	}

	actionVal := v.LookupPath(cue.ParsePath("action"))
	if !actionVal.Exists() {
		return ir.Effect{}, &CompileError{
			Field:   field + ".action",
			Message: "action is required",
			Pos:     v.Pos(),
		}
	}
	action, err := actionVal.String()
	if err != nil {
		return ir.Effect{}, formatCUEError(err)
	}
	if action == "" {
		return ir.Effect{}, &CompileError{
			Field:   field + ".action",
			Message: "action must be non-empty",
			Pos:     actionVal.Pos(),
		}
	}

	effect := ir.Effect{Action: ir.ActionKind(action), Target: ir.Null{}}

	if ruleVal := v.LookupPath(cue.ParsePath("rule")); ruleVal.Exists() {
		rule, err := ruleVal.String()
		if err != nil {
			return ir.Effect{}, formatCUEError(err)
		}
		effect.RulePHID = ir.PHID(rule)
	}

	if reasonVal := v.LookupPath(cue.ParsePath("reason")); reasonVal.Exists() {
		reason, err := reasonVal.String()
		if err != nil {
			return ir.Effect{}, formatCUEError(err)
		}
		effect.Reason = reason
	}

	if targetVal := v.LookupPath(cue.ParsePath("target")); targetVal.Exists() {
		target, err := compileValue(field+".target", targetVal)
		if err != nil {
			return ir.Effect{}, err
		}
		effect.Target = target
	}

	return effect, nil
}

// compileValue converts a concrete CUE value to an ir.Value.
func compileValue(field string, v cue.Value) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{
			Field:   field,
			Message: "value must be concrete",
			Pos:     v.Pos(),
		}
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil

	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return ir.Int(n), nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for i := 0; iter.Next(); i++ {
			elem, err := compileValue(fmt.Sprintf("%s[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil

	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			key := iter.Selector().Unquoted()
			elem, err := compileValue(field+"."+key, iter.Value())
			if err != nil {
				return nil, err
			}
			obj[key] = elem
		}
		return obj, nil

	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}

	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileEffectsFile compiles the effects in path. A directory is loaded
// as a CUE package; a file is compiled on its own.
func CompileEffectsFile(path string) ([]ir.Effect, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("effects file: %w", err)
	}

	ctx := cuecontext.New()
	var v cue.Value

	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("effects dir %s: no CUE instances loaded", path)
		}
		if err := instances[0].Err; err != nil {
			return nil, formatCUEError(err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("effects file: %w", err)
		}
		v = ctx.CompileBytes(data, cue.Filename(path))
	}

	return CompileEffects(v)
}
