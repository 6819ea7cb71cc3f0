package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lherron/recmerge/internal/bulk"
	"github.com/lherron/recmerge/internal/cli/appctx"
	"github.com/lherron/recmerge/internal/record"
	"github.com/lherron/recmerge/internal/render"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Store and inspect records",
}

var recordPutCmd = &cobra.Command{
	Use:   "put [file|-]",
	Short: "Store a record from a JSON document",
	Long: `Put stores a JSON record keyed by its "uri" field, replacing any record
already stored under that uri. Every {"ref": "<uri>"} object inside the
record is indexed so that merges can repoint it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runRecordPut),
}

var recordImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Store many records, one JSON file each",
	Long: `Import stores every given file as a record, like "record put", using a
pool of workers. Each file is stored in its own transaction, so a failing
file does not undo the others.

Exit status is 0 when every file was stored, 5 on partial success and 1
when nothing was stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runRecordImport),
}

var recordGetCmd = &cobra.Command{
	Use:   "get <uri>",
	Short: "Print a stored record",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runRecordGet),
}

var recordRmCmd = &cobra.Command{
	Use:   "rm <uri>",
	Short: "Delete a stored record",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runRecordRm),
}

var recordLinksCmd = &cobra.Command{
	Use:   "links <uri>",
	Short: "List the stored records referencing a uri",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runRecordLinks),
}

var recordHistoryCmd = &cobra.Command{
	Use:   "history <uri>",
	Short: "Show the event log of a record, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runRecordHistory),
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.AddCommand(recordPutCmd, recordImportCmd, recordGetCmd, recordRmCmd, recordLinksCmd, recordHistoryCmd)

	recordHistoryCmd.Flags().Int("limit", 50, "Maximum number of events to show")
	recordImportCmd.Flags().IntP("jobs", "j", 0, "Number of parallel workers (0 = number of CPUs)")
	recordImportCmd.Flags().Bool("continue-on-error", false, "Keep importing after a file fails")
}

func runRecordPut(app *appctx.App, cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	rec, err := record.Decode(data)
	if err != nil {
		return err
	}

	res, err := app.Store.Records.Put(rec)
	if err != nil {
		return err
	}
	app.Logger.Debug("record stored",
		zap.String("uri", res.URI),
		zap.Bool("created", res.Created),
		zap.Int64("lock_version", res.LockVersion))
	return app.Renderer.Render(res)
}

func runRecordImport(app *appctx.App, cmd *cobra.Command, args []string) error {
	jobs, _ := cmd.Flags().GetInt("jobs")
	continueOnError, _ := cmd.Flags().GetBool("continue-on-error")

	op := &bulk.Operation{
		Jobs:            jobs,
		ContinueOnError: continueOnError,
		Logger:          app.Logger,
	}
	result := op.Execute(args, func(file string) error {
		data, err := readInput(cmd.InOrStdin(), []string{file})
		if err != nil {
			return err
		}
		rec, err := record.Decode(data)
		if err != nil {
			return err
		}
		_, err = app.Store.Records.Put(rec)
		return err
	})

	if app.Renderer.Format() == render.FormatTable {
		result.PrintSummary(cmd.OutOrStdout())
	} else if err := app.Renderer.Render(result); err != nil {
		return err
	}

	if code := result.ExitCode(); code != 0 {
		return exitError(code, fmt.Errorf("%d of %d files failed to import", result.Failed, result.TotalItems))
	}
	return nil
}

func runRecordGet(app *appctx.App, cmd *cobra.Command, args []string) error {
	rec, err := app.Store.Records.Get(args[0])
	if err != nil {
		return err
	}
	return app.Renderer.Render(rec)
}

func runRecordRm(app *appctx.App, cmd *cobra.Command, args []string) error {
	if err := app.Store.Records.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
	return nil
}

func runRecordLinks(app *appctx.App, cmd *cobra.Command, args []string) error {
	links, err := app.Store.Records.Links(args[0])
	if err != nil {
		return err
	}

	if app.Renderer.Format() == render.FormatTable {
		rows := make([][]string, len(links))
		for i, l := range links {
			rows[i] = []string{l.SourceURI, l.Path}
		}
		return app.Renderer.RenderTable([]string{"SOURCE", "PATH"}, rows)
	}
	if links == nil {
		return app.Renderer.Render([]struct{}{})
	}
	return app.Renderer.Render(links)
}

func runRecordHistory(app *appctx.App, cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	history, err := app.Store.Events().Recent(args[0], limit)
	if err != nil {
		return err
	}

	if app.Renderer.Format() == render.FormatTable {
		rows := make([][]string, len(history))
		for i, e := range history {
			payload := ""
			if e.Payload != nil {
				payload = *e.Payload
			}
			rows[i] = []string{strconv.FormatInt(e.ID, 10), e.Timestamp, e.EventType, payload}
		}
		return app.Renderer.RenderTable([]string{"ID", "TIMESTAMP", "EVENT", "PAYLOAD"}, rows)
	}
	return app.Renderer.Render(history)
}
