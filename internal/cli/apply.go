package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/herald/internal/adapter"
	"github.com/roach88/herald/internal/engine"
	"github.com/roach88/herald/internal/ir"
	"github.com/roach88/herald/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database string
	Revision int64
	Diff     int64
	Actor    string

	// tokens overrides the cycle token generator in tests.
	tokens engine.CycleTokenGenerator
}

// ApplyResult is the outcome of one cycle as printed by apply.
type ApplyResult struct {
	CycleToken  string            `json:"cycle_token"`
	RevisionID  int64             `json:"revision_id"`
	DiffID      int64             `json:"diff_id"`
	Transcripts []ir.Transcript   `json:"transcripts"`
	BuildPlans  []ir.Value        `json:"build_plans"`
	Emails      []ir.PHID         `json:"emails,omitempty"`
	Flags       []adapter.Flag    `json:"flags,omitempty"`
	Comments    []adapter.Comment `json:"comments,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	return newApplyCommand(rootOpts, nil)
}

// newApplyCommand creates the apply command with a fixed token generator.
// A nil generator uses UUIDv7 tokens.
func newApplyCommand(rootOpts *RootOptions, tokens engine.CycleTokenGenerator) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts, tokens: tokens}

	cmd := &cobra.Command{
		Use:   "apply <effects.cue>",
		Short: "Apply effects to a revision",
		Long: `Run one herald cycle: rehydrate the revision and diff from the
database, apply the effects in the given CUE file, and record the
transcripts and queued build plans.

Exit codes:
  0 - Cycle completed (individual effects may still be unapplied)
  1 - Cycle aborted (revision or diff not found, diff mismatch)
  2 - Command error (database, effects file)

Examples:
  herald apply --db ./herald.db --revision 42 --diff 7 effects.cue
  herald apply --revision 42 --diff 7 --format json effects.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.dbDefault(), "path to SQLite database")
	cmd.Flags().Int64Var(&opts.Revision, "revision", 0, "revision ID (required)")
	_ = cmd.MarkFlagRequired("revision")
	cmd.Flags().Int64Var(&opts.Diff, "diff", 0, "diff ID (required)")
	_ = cmd.MarkFlagRequired("diff")
	cmd.Flags().StringVar(&opts.Actor, "actor", actorDefault(rootOpts), "system actor PHID")

	return cmd
}

func runApply(ctx context.Context, opts *ApplyOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	effects, err := compileEffects(formatter, path)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	lastSeq, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit log", err)
	}

	tokens := opts.tokens
	if tokens == nil {
		tokens = engine.UUIDv7Generator{}
	}
	eng := engine.New(st, tokens,
		engine.WithClock(engine.NewClockAt(lastSeq)),
		engine.WithSystemActor(ir.PHID(opts.Actor)),
	)

	formatter.VerboseLog("Applying %d effect(s) to D%d (diff %d)", len(effects), opts.Revision, opts.Diff)
	res, err := eng.RunCycle(ctx, engine.Event{RevisionID: opts.Revision, DiffID: opts.Diff}, engine.StaticEffects(effects))
	if err != nil {
		var ce *engine.CycleError
		if errors.As(err, &ce) {
			_ = formatter.Error(ErrCodeCycleFailed, err.Error(), map[string]any{"code": ce.Code})
			return WrapExitError(ExitFailure, "cycle aborted", err)
		}
		return WrapExitError(ExitCommandError, "cycle failed", err)
	}

	result := ApplyResult{
		CycleToken:  res.CycleToken,
		RevisionID:  res.Event.RevisionID,
		DiffID:      res.Event.DiffID,
		Transcripts: res.Transcripts,
		BuildPlans:  res.BuildPlans,
	}
	if std, ok := res.Standard.(*adapter.Standard); ok {
		result.Emails = std.Emails()
		result.Flags = std.Flags()
		result.Comments = std.Comments()
	}

	if formatter.IsJSON() {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}
	writeApplyResult(cmd.OutOrStdout(), result)
	return nil
}

func actorDefault(o *RootOptions) string {
	if o.Config.SystemActor == "" {
		return string(engine.DefaultSystemActorPHID)
	}
	return o.Config.SystemActor
}

func writeApplyResult(w io.Writer, r ApplyResult) {
	fmt.Fprintf(w, "Cycle: %s\n", r.CycleToken)
	fmt.Fprintf(w, "Revision: D%d (diff %d)\n", r.RevisionID, r.DiffID)
	fmt.Fprintln(w)

	writeTranscripts(w, r.Transcripts)
	fmt.Fprintln(w)
	writeBuildPlans(w, r.BuildPlans)

	if len(r.Emails) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Emails ===")
		for _, e := range r.Emails {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	if len(r.Flags) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Flags ===")
		for _, f := range r.Flags {
			fmt.Fprintf(w, "  %s by %s\n", f.Color, f.RulePHID)
		}
	}
	if len(r.Comments) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Comments ===")
		for _, c := range r.Comments {
			fmt.Fprintf(w, "  %s: %s\n", c.RulePHID, c.Text)
		}
	}
}

func writeTranscripts(w io.Writer, transcripts []ir.Transcript) {
	fmt.Fprintln(w, "=== Transcripts ===")
	if len(transcripts) == 0 {
		fmt.Fprintln(w, "  (no effects)")
		return
	}
	for _, tr := range transcripts {
		mark := "✓"
		if !tr.Applied {
			mark = "✗"
		}
		fmt.Fprintf(w, "  [%d] %s %s %s\n", tr.Seq, mark, tr.Action, tr.Reason)
		if tr.RulePHID != "" {
			fmt.Fprintf(w, "      rule: %s\n", tr.RulePHID)
		}
	}
}

func writeBuildPlans(w io.Writer, plans []ir.Value) {
	fmt.Fprintln(w, "=== Build Plans ===")
	if len(plans) == 0 {
		fmt.Fprintln(w, "  (none queued)")
		return
	}
	for i, p := range plans {
		data, err := ir.MarshalCanonical(p)
		if err != nil {
			fmt.Fprintf(w, "  %d. <%v>\n", i+1, err)
			continue
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, data)
	}
}
