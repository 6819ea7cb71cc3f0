package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/recmerge/internal/cli/appctx"
	"github.com/lherron/recmerge/internal/merge"
	"github.com/lherron/recmerge/internal/render"
	"github.com/lherron/recmerge/internal/selection"
)

var selectionsCmd = &cobra.Command{
	Use:   "selections [file|-]",
	Short: "List the paths a selection tree selects",
	Long: `Selections reads a JSON or YAML selection tree and prints every selected
path in document order, along with whether the merge will append the
victim's subrecord or replace the target's value.`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.Options{}, runSelections),
}

func init() {
	rootCmd.AddCommand(selectionsCmd)
}

type selectedPath struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Depth  int    `json:"depth"`
}

func runSelections(app *appctx.App, cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	sel, err := selection.ParseBytes(data)
	if err != nil {
		return err
	}

	paths := make([]selectedPath, 0, len(sel))
	for _, p := range sel {
		paths = append(paths, selectedPath{
			Path:   p.String(),
			Action: merge.ActionFor(p.Head()).String(),
			Depth:  p.Depth(),
		})
	}

	if app.Renderer.Format() == render.FormatTable {
		rows := make([][]string, len(paths))
		for i, p := range paths {
			rows[i] = []string{p.Path, p.Action, fmt.Sprint(p.Depth)}
		}
		return app.Renderer.RenderTable([]string{"PATH", "ACTION", "DEPTH"}, rows)
	}
	return app.Renderer.Render(paths)
}
