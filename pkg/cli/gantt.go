package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/priority-manager/pkg/gantt"
	"github.com/harrisonrobin/priority-manager/pkg/store"
)

func newGanttCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "gantt",
		Short: "Draw a Gantt chart of tasks from start to due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.env()
			if err != nil {
				return err
			}
			tasks, err := e.listSorted(store.ListOptions{})
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(app.Out, "No tasks found.")
				return nil
			}
			bars := gantt.Build(tasks)
			if len(bars) == 0 {
				fmt.Fprintln(app.Out, "No tasks with valid dates to build Gantt chart.")
				return nil
			}

			var w io.Writer = app.Out
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := gantt.Render(w, bars, e.cfg.Gantt.Width, app.Now()); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(app.Out, "Gantt chart written to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the chart to a file")
	return cmd
}
