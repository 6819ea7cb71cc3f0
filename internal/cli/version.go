package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/recmerge/internal/merge"
	"github.com/lherron/recmerge/internal/mergereq"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Displays version, commit, and build date information.`,
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		output := map[string]interface{}{
			"version":       Version,
			"commit":        GitCommit,
			"build_date":    BuildDate,
			"merge_kinds":   mergereq.Kinds(),
			"append_fields": merge.AppendFields(),
			"supported_formats": []string{
				"json", "yaml", "table",
			},
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recmerge version %s\n", Version)
	fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", GitCommit)
	fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", BuildDate)

	return nil
}
