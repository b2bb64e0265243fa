package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/herald/internal/engine"
	"github.com/roach88/herald/internal/ir"
	"github.com/roach88/herald/internal/store"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
	Cycle    string // optional; lists cycles when empty
}

// AuditResult is the verified audit record of one cycle.
type AuditResult struct {
	CycleToken  string                  `json:"cycle_token"`
	RevisionID  int64                   `json:"revision_id"`
	DiffID      int64                   `json:"diff_id"`
	Verified    bool                    `json:"verified"`
	Transcripts []ir.Transcript         `json:"transcripts"`
	BuildPlans  []store.QueuedBuildPlan `json:"build_plans"`
}

// CycleList is the audit output without --cycle.
type CycleList struct {
	Cycles []string `json:"cycles"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and verify the audit log",
		Long: `List recorded cycles, or show one cycle's transcripts and queued build
plans after checking every transcript against its content-addressed ID.
Every completed cycle is recorded, including cycles that applied no
effects.

Exit codes:
  0 - Cycle verified (or cycles listed)
  1 - A transcript was altered after it was written
  2 - Command error (database not found, etc.)

Examples:
  herald audit --db ./herald.db
  herald audit --db ./herald.db --cycle 0190a1b2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.dbDefault(), "path to SQLite database")
	cmd.Flags().StringVar(&opts.Cycle, "cycle", "", "cycle token to verify")

	return cmd
}

func runAudit(ctx context.Context, opts *AuditOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	w := cmd.OutOrStdout()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Cycle == "" {
		cycles, err := st.ListCycles(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list cycles", err)
		}
		if formatter.IsJSON() {
			return formatter.JSON(CLIResponse{Status: "ok", Data: CycleList{Cycles: cycles}})
		}
		if len(cycles) == 0 {
			fmt.Fprintln(w, "No cycles recorded.")
			return nil
		}
		for _, c := range cycles {
			fmt.Fprintln(w, c)
		}
		return nil
	}

	summary, err := st.LoadCycle(ctx, opts.Cycle)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no cycle %s", opts.Cycle), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("no cycle %s", opts.Cycle))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cycle", err)
	}

	eng := engine.New(st, engine.UUIDv7Generator{})
	transcripts, verr := eng.VerifyCycle(ctx, opts.Cycle)
	var tampered *engine.TamperedError
	if verr != nil && !errors.As(verr, &tampered) {
		return WrapExitError(ExitCommandError, "failed to read cycle", verr)
	}

	queue, err := st.ReadBuildPlanQueue(ctx, opts.Cycle)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read build plan queue", err)
	}

	result := AuditResult{
		CycleToken:  opts.Cycle,
		RevisionID:  summary.RevisionID,
		DiffID:      summary.DiffID,
		Verified:    tampered == nil,
		Transcripts: transcripts,
		BuildPlans:  queue,
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if tampered != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTampered, Message: tampered.Error()}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "Cycle: %s\n", result.CycleToken)
		if tampered != nil {
			fmt.Fprintf(w, "Status: ✗ TAMPERED (%s)\n", tampered.Error())
		} else {
			fmt.Fprintln(w, "Status: ✓ verified")
		}
		fmt.Fprintf(w, "Revision: D%d (diff %d)\n", result.RevisionID, result.DiffID)
		fmt.Fprintln(w)
		writeTranscripts(w, result.Transcripts)
		fmt.Fprintln(w)
		plans := make([]ir.Value, len(queue))
		for i, q := range queue {
			plans[i] = q.Plan
		}
		writeBuildPlans(w, plans)
	}

	if tampered != nil {
		return WrapExitError(ExitFailure, "audit verification failed", tampered)
	}
	return nil
}
