package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/recmerge/internal/cli/appctx"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the recmerge database",
	Long: `Initialize creates the SQLite database and runs migrations.

It is safe to run against an existing database: only pending migrations
are applied.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Options{NeedsDB: true, SkipMigrationCheck: true}, runInit),
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(app *appctx.App, cmd *cobra.Command, args []string) error {
	previous, _, err := app.DB.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	applied, err := app.DB.MigrateWithInfo()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(previous) == 0 {
		fmt.Fprintf(out, "✓ Initialized new database at %s\n", app.DB.Path())
	} else {
		fmt.Fprintf(out, "✓ Database already initialized at %s\n", app.DB.Path())
	}
	if len(applied) > 0 {
		fmt.Fprintf(out, "✓ Applied %d migration(s)\n", len(applied))
	}
	return nil
}
