package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lherron/recmerge/internal/cli/appctx"
	"github.com/lherron/recmerge/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run any pending database migrations",
	Long: `Migrate applies any pending SQL migrations to the database.

Migrations are embedded in the recmerge binary and tracked via the
schema_migrations table. Each migration file (e.g., 000001_baseline.sql) is
applied exactly once, so the command is safe to run repeatedly.

Use --dry-run to see which migrations would be applied without running them.
Use --status to show the current migration status.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Options{NeedsDB: true, SkipMigrationCheck: true}, runMigrate),
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("dry-run", false, "Show which migrations would be applied without running them")
	migrateCmd.Flags().Bool("status", false, "Show current migration status")
}

func runMigrate(app *appctx.App, cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if status, _ := cmd.Flags().GetBool("status"); status {
		return showMigrationStatus(out, app.DB)
	}
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return showPendingMigrations(out, app.DB)
	}

	applied, err := app.DB.MigrateWithInfo()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if len(applied) == 0 {
		fmt.Fprintln(out, "Database is up to date. No migrations to apply.")
		return nil
	}
	for _, m := range applied {
		fmt.Fprintf(out, "✓ Applied migration: %s\n", m)
	}
	fmt.Fprintf(out, "\nApplied %d migration(s).\n", len(applied))
	app.Logger.Info("migrations applied", zap.Strings("migrations", applied))
	return nil
}

func showMigrationStatus(out io.Writer, database *db.DB) error {
	applied, pending, err := database.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(applied) == 0 && len(pending) == 0 {
		fmt.Fprintln(out, "No migrations found.")
		return nil
	}

	if len(applied) > 0 {
		fmt.Fprintln(out, "Applied migrations:")
		for _, m := range applied {
			fmt.Fprintf(out, "  ✓ %s\n", m)
		}
	}

	if len(pending) > 0 {
		if len(applied) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, "Pending migrations:")
		for _, m := range pending {
			fmt.Fprintf(out, "  ○ %s\n", m)
		}
	}

	return nil
}

func showPendingMigrations(out io.Writer, database *db.DB) error {
	_, pending, err := database.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending migrations. Database is up to date.")
		return nil
	}

	fmt.Fprintln(out, "Pending migrations (would be applied):")
	for _, m := range pending {
		fmt.Fprintf(out, "  ○ %s\n", m)
	}
	fmt.Fprintf(out, "\nTotal: %d migration(s) would be applied.\n", len(pending))

	return nil
}
