package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/herald/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
}

// SeedResult summarizes a loaded fixture.
type SeedResult struct {
	Repositories int `json:"repositories"`
	Revisions    int `json:"revisions"`
	Diffs        int `json:"diffs"`
	Packages     int `json:"packages"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load revision data into the database",
		Long: `Load repositories, revisions, diffs and owners packages from a YAML
fixture. Existing repositories and revisions are updated; existing diffs
are left unchanged.

Examples:
  herald seed --db ./herald.db fixture.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.dbDefault(), "path to SQLite database")

	return cmd
}

func runSeed(ctx context.Context, opts *SeedOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	fixture, err := store.LoadFixture(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load fixture", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.Seed(ctx, fixture); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to seed database", err)
	}

	result := SeedResult{
		Repositories: len(fixture.Repositories),
		Revisions:    len(fixture.Revisions),
		Diffs:        len(fixture.Diffs),
		Packages:     len(fixture.Packages),
	}
	if formatter.IsJSON() {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d repositories, %d revisions, %d diffs, %d packages\n",
		opts.Database, result.Repositories, result.Revisions, result.Diffs, result.Packages)
	return nil
}
