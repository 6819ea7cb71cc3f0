package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recmerge",
	Short: "Merge duplicate archival authority records",
	Long: `recmerge folds duplicate archival records into a surviving target.

Plain merges (subject, container_profile, agent, resource, digital_object)
repoint every reference to the victims at the target and delete the victims.
Detailed agent merges also copy selected fields of the first victim into
the target, and can be previewed with --dry-run before anything is written.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides RECMERGE_DB_PATH)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: json, yaml or table (overrides RECMERGE_OUTPUT)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides RECMERGE_LOG_LEVEL)")
}
