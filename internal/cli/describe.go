package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/herald/internal/adapter"
	"github.com/roach88/herald/internal/differential"
	"github.com/roach88/herald/internal/ir"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	Scope string // optional rule type filter
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Describe the revision adapter",
		Long: `Print the revision adapter's metadata: content type, supported rule
scopes, repetition options and the actions each scope may take.

Examples:
  herald describe
  herald describe --scope personal
  herald describe --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scope, "scope", "", "only show one rule scope (global|personal|object)")

	return cmd
}

func runDescribe(opts *DescribeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	d := adapter.Describe(differential.New(differential.Sources{}))

	if opts.Scope != "" {
		scope, err := parseScope(opts.Scope)
		if err != nil {
			return err
		}
		actions, ok := d.Actions[scope]
		if !ok {
			_ = formatter.Error(ErrCodeInvalid, fmt.Sprintf("%s does not support %s rules", d.ContentType, scope), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("unsupported scope %s", scope))
		}
		d.RuleTypes = []ir.RuleType{scope}
		d.Actions = map[ir.RuleType][]ir.ActionKind{scope: actions}
	}

	if formatter.IsJSON() {
		return formatter.JSON(CLIResponse{Status: "ok", Data: d})
	}
	writeDescriptor(cmd.OutOrStdout(), d)
	return nil
}

func writeDescriptor(w io.Writer, d adapter.Descriptor) {
	fmt.Fprintf(w, "%s (%s)\n", d.ContentName, d.ContentType)
	for _, line := range strings.Split(d.Description, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w)

	repetition := make([]string, len(d.RepetitionOptions))
	for i, r := range d.RepetitionOptions {
		repetition[i] = string(r)
	}
	fmt.Fprintf(w, "Repetition: %s\n", strings.Join(repetition, ", "))

	for _, rt := range d.RuleTypes {
		fmt.Fprintf(w, "\n=== %s rules ===\n", rt)
		for _, a := range d.Actions[rt] {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}
}

// parseScope validates a --scope value.
func parseScope(s string) (ir.RuleType, error) {
	for _, rt := range ir.RuleTypes {
		if string(rt) == s {
			return rt, nil
		}
	}
	return "", NewExitError(ExitCommandError,
		fmt.Sprintf("invalid scope %q: must be one of %v", s, ir.RuleTypes))
}
