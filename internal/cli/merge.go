package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/recmerge/internal/cli/appctx"
	"github.com/lherron/recmerge/internal/mergereq"
	"github.com/lherron/recmerge/internal/render"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge duplicate records into a target",
	Long: `Merge folds victim records into a target record.

Every stored reference to a victim is repointed at the target, then the
victims are deleted. All of it happens in one transaction.

Requests come from flags or from a JSON document given with -f:

  {"target": {"ref": "/subjects/1"}, "victims": [{"ref": "/subjects/2"}]}`,
}

var mergeDetailCmd = &cobra.Command{
	Use:   "agent-detail",
	Short: "Merge agent records, copying selected fields from the first victim",
	Long: `Agent-detail merges agent records like "merge agent", and additionally
copies the fields selected in the request from the first victim into the
target before the victims are deleted.

Selections mirror the record's shape, with REPLACE marking each chosen
value:

  {"target": {"ref": "/agents/people/1"},
   "victims": [{"ref": "/agents/people/2"}],
   "selections": {"names": [{"primary_name": "REPLACE"}], "publish": "REPLACE"}}

Subrecord lists such as names or dates_of_existence gain the selected victim
entry; every other field is overwritten with the victim's value.

With --dry-run nothing is written and the merged target is printed instead.
Add --diff to print it as a unified diff against the stored target.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runMergeDetail),
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	for _, kind := range mergereq.Kinds() {
		mergeCmd.AddCommand(newMergeKindCmd(kind))
	}

	mergeCmd.AddCommand(mergeDetailCmd)
	mergeDetailCmd.Flags().StringP("file", "f", "-", "JSON merge request file (- for stdin)")
	mergeDetailCmd.Flags().Bool("dry-run", false, "Show the merged target without writing anything")
	mergeDetailCmd.Flags().Bool("diff", false, "With --dry-run, print a unified diff instead of the preview")
}

func newMergeKindCmd(kind mergereq.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Merge %s records", kind),
		Args:  cobra.NoArgs,
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			return runMergeKind(app, cmd, kind)
		}),
	}
	cmd.Flags().StringP("file", "f", "", "JSON merge request file (- for stdin)")
	cmd.Flags().String("target", "", "URI of the record that survives")
	cmd.Flags().StringSlice("victim", nil, "URI of a record to merge into the target (repeatable)")
	if kind == mergereq.KindResource || kind == mergereq.KindDigitalObject {
		cmd.Flags().Int64("repo-id", 0, "Repository all records must belong to")
		cmd.MarkFlagRequired("repo-id")
	}
	return cmd
}

func runMergeKind(app *appctx.App, cmd *cobra.Command, kind mergereq.Kind) error {
	req, err := mergeRequestFromFlags(cmd)
	if err != nil {
		return err
	}
	var repoID int64
	if cmd.Flags().Lookup("repo-id") != nil {
		repoID, _ = cmd.Flags().GetInt64("repo-id")
	}

	svc := mergereq.NewService(app.Store.Records, app.Logger)
	res, err := svc.Merge(kind, req, repoID)
	if err != nil {
		return err
	}
	return app.Renderer.Render(res)
}

func mergeRequestFromFlags(cmd *cobra.Command) (mergereq.MergeRequest, error) {
	file, _ := cmd.Flags().GetString("file")
	target, _ := cmd.Flags().GetString("target")
	victims, _ := cmd.Flags().GetStringSlice("victim")

	if file != "" {
		if target != "" || len(victims) > 0 {
			return mergereq.MergeRequest{}, fmt.Errorf("--file cannot be combined with --target or --victim")
		}
		data, err := readInput(cmd.InOrStdin(), []string{file})
		if err != nil {
			return mergereq.MergeRequest{}, err
		}
		return mergereq.DecodeMergeRequest(data)
	}

	if target == "" || len(victims) == 0 {
		return mergereq.MergeRequest{}, fmt.Errorf("a merge needs --target and at least one --victim, or --file")
	}
	req := mergereq.MergeRequest{Target: mergereq.Reference{Ref: target}}
	for _, v := range victims {
		req.Victims = append(req.Victims, mergereq.Reference{Ref: v})
	}
	return req, nil
}

func runMergeDetail(app *appctx.App, cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	showDiff, _ := cmd.Flags().GetBool("diff")
	if showDiff && !dryRun {
		return fmt.Errorf("--diff requires --dry-run")
	}

	data, err := readInput(cmd.InOrStdin(), []string{file})
	if err != nil {
		return err
	}
	req, err := mergereq.DecodeMergeRequestDetail(data)
	if err != nil {
		return err
	}

	svc := mergereq.NewService(app.Store.Records, app.Logger)
	res, err := svc.MergeDetail(req, dryRun)
	if err != nil {
		return err
	}

	if showDiff {
		// The preview is built without event links, so compare like with like.
		before := res.Target.Clone()
		delete(before, "linked_events")
		text, err := render.Diff(before, res.Preview, req.Target.Ref, "preview")
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}
	return app.Renderer.Render(res)
}
