package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/herald/internal/compiler"
	"github.com/roach88/herald/internal/differential"
	"github.com/roach88/herald/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Scope string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Effects int                        `json:"effects"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <effects.cue>",
		Short: "Check an effects file against the revision adapter",
		Long: `Compile an effects file and check every effect against the actions
the revision adapter offers to the given rule scope.

Invalid effects would still apply as unapplied transcripts; validate
reports them before a cycle runs.

Exit codes:
  0 - All effects valid
  1 - One or more effects invalid
  2 - Command error (file not found, compile error, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scope, "scope", string(ir.RuleTypeGlobal), "rule scope (global|personal|object)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	scope, err := parseScope(opts.Scope)
	if err != nil {
		return err
	}

	effects, err := compileEffects(formatter, path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Compiled %d effect(s) from %s", len(effects), path)

	errs := compiler.ValidateEffects(differential.New(differential.Sources{}), scope, effects)
	result := ValidationResult{
		Valid:   len(errs) == 0,
		Effects: len(effects),
		Errors:  errs,
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeInvalid, Message: fmt.Sprintf("%d validation error(s)", len(errs))}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.Valid {
			fmt.Fprintf(w, "✓ %d effect(s) valid for %s rules\n", result.Effects, scope)
		} else {
			fmt.Fprintf(w, "✗ %d validation error(s):\n", len(errs))
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e.Error())
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
	}
	return nil
}

// compileEffects compiles path, reporting compile errors through the
// formatter. Failures are command errors.
func compileEffects(formatter *OutputFormatter, path string) ([]ir.Effect, error) {
	effects, err := compiler.CompileEffectsFile(path)
	if err == nil {
		return effects, nil
	}

	code := ErrCodeCompileFailed
	if errors.Is(err, os.ErrNotExist) {
		code = ErrCodeNotFound
	}
	_ = formatter.Error(code, err.Error(), nil)
	return nil, WrapExitError(ExitCommandError, "failed to compile effects", err)
}
