package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/priority-manager/pkg/export"
	"github.com/harrisonrobin/priority-manager/pkg/model"
	"github.com/harrisonrobin/priority-manager/pkg/overdue"
	"github.com/harrisonrobin/priority-manager/pkg/priority"
	"github.com/harrisonrobin/priority-manager/pkg/store"
)

func newAddCmd(app *App) *cobra.Command {
	var yes bool
	var folder string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a new task with a calculated priority",
		Long: `Add a new task with a calculated priority. A name such as "Area/Task"
stores the task in the "Area" sub-folder; --folder sets the folder explicitly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.env()
			if err != nil {
				return err
			}

			name, inferred := splitTaskPath(args[0])
			if folder == "" {
				folder = inferred
			}
			if strings.TrimSpace(name) == "" {
				return errors.New("task name must not be empty")
			}

			task := model.Task{Name: name}
			d := e.cfg.Defaults
			if yes {
				task.PriorityScore = d.Priority
				task.Description = d.Description
				task.DueDate = d.DueDate
				task.Tags = d.Tags
				task.Status = d.Status
			} else {
				p := newPrompter(app.In, app.Out)
				if task.PriorityScore, err = askPriority(p); err != nil {
					return err
				}
				if task.Description, err = p.String("Enter task description", model.NoDescription); err != nil {
					return err
				}
				if task.DueDate, err = p.Date("Enter due date (YYYY-MM-DD)", model.NoDueDate); err != nil {
					return err
				}
				if task.Tags, err = p.String("Enter tags (comma-separated)", ""); err != nil {
					return err
				}
				if task.Status, err = p.Choice("Enter task status", e.cfg.Statuses, d.Status); err != nil {
					return err
				}
			}

			var folders []string
			if folder != "" {
				folders = append(folders, folder)
			}
			created, err := e.store.Create(task, folders...)
			if err != nil {
				return err
			}

			e.logAction("Added task: %s with priority %d and status %s", created.Name, created.PriorityScore, created.Status)
			fmt.Fprintf(app.Out, "Task added successfully with priority score: %d and status: %s. File: %s\n",
				created.PriorityScore, created.Status, created.Path)
			if folder != "" {
				fmt.Fprintf(app.Out, "(Stored under subfolder: %s)\n", folder)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip prompts and use default values")
	cmd.Flags().StringVar(&folder, "folder", "", "Sub-folder under the tasks directory")
	return cmd
}

// splitTaskPath splits "Area/Sub/Task" into the task name and its folder
// path. Names without a separator have no folder.
func splitTaskPath(arg string) (name, folder string) {
	cleaned := strings.NewReplacer("\t", " ", "\n", " ", "\r", " ", "\\", "/").Replace(arg)
	var parts []string
	for _, p := range strings.Split(cleaned, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return strings.TrimSpace(arg), ""
	case 1:
		return parts[0], ""
	}
	return parts[len(parts)-1], strings.Join(parts[:len(parts)-1], "/")
}

func askPriority(p *prompter) (int, error) {
	var scores [3]int
	for i, label := range []string{"Urgency (1-5)", "Importance (1-5)", "Effort (1-5)"} {
		v, err := p.Int(label)
		if err != nil {
			return 0, err
		}
		scores[i] = v
	}
	return priority.Calculate(scores[0], scores[1], scores[2]), nil
}

func newEditCmd(app *App) *cobra.Command {
	var status string
	var complete bool

	cmd := &cobra.Command{
		Use:   "edit [N]",
		Short: "Edit a task, or only change its status",
		Long: `Edit the task at position N of "ls". With --status or --complete only the
status changes and every other field is kept as is.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && complete {
				return errors.New("--status and --complete cannot be combined")
			}
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

			p := newPrompter(app.In, app.Out)
			selector, err := selection(app, e, p, tasks, args, "Enter the number of the task you want to edit")
			if err != nil {
				return err
			}
			task, err := store.Select(tasks, selector)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(app.Out, "Invalid choice. Please try again.")
				return nil
			}
			if err != nil {
				return err
			}

			if complete {
				status = e.cfg.DoneStatus()
			}
			if status != "" {
				canonical, ok := matchStatus(e.cfg.Statuses, status)
				if !ok {
					return fmt.Errorf("unknown status %q, expected one of %s", status, strings.Join(e.cfg.Statuses, ", "))
				}
				if _, err := e.store.SetStatus(task, canonical); err != nil {
					return err
				}
				e.logAction("Changed status of task: %s to %s", task.Name, canonical)
				fmt.Fprintf(app.Out, "Task status updated to: %s\n", canonical)
				return nil
			}

			if task.Name, err = p.String("Enter new task name", task.Name); err != nil {
				return err
			}
			if task.Description, err = p.String("Enter new description", task.Description); err != nil {
				return err
			}
			if task.DueDate, err = p.Date("Enter new due date (YYYY-MM-DD)", task.DueDate); err != nil {
				return err
			}
			if task.Tags, err = p.String("Enter new tags (comma-separated)", task.Tags); err != nil {
				return err
			}
			if task.PriorityScore, err = askPriority(p); err != nil {
				return err
			}
			current := task.Status
			if _, ok := matchStatus(e.cfg.Statuses, current); !ok {
				current = e.cfg.OpenStatus()
			}
			if task.Status, err = p.Choice("Enter new status", e.cfg.Statuses, current); err != nil {
				return err
			}

			if _, err := e.store.Replace(task); err != nil {
				return err
			}
			e.logAction("Edited task: %s with new priority %d", task.Name, task.PriorityScore)
			fmt.Fprintln(app.Out, "Task edited successfully.")
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only set the status")
	cmd.Flags().BoolVar(&complete, "complete", false, "Only set the status to the last configured status")
	return cmd
}

// selection returns the selector given as argument, or shows the tasks
// and asks for one.
func selection(app *App, e *env, p *prompter, tasks []model.Task, args []string, label string) (int, error) {
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("invalid task number %q", args[0])
		}
		return n, nil
	}
	if err := app.showTasks(e, tasks); err != nil {
		return 0, err
	}
	return p.Int(label)
}

func matchStatus(statuses []string, value string) (string, bool) {
	for _, s := range statuses {
		if strings.EqualFold(s, value) {
			return s, true
		}
	}
	return "", false
}

func newListCmd(app *App) *cobra.Command {
	var status string
	var recursive, late bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list-tasks"},
		Short:   "List tasks sorted by priority",
		Long: `List tasks sorted by priority. Sub-folders are listed automatically when
the tasks directory only holds folders.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.env()
			if err != nil {
				return err
			}
			tasks, err := e.listSorted(store.ListOptions{Recursive: recursive, Status: status})
			if err != nil {
				return err
			}
			if late {
				tasks = overdue.Tasks(overdue.Sweep(tasks, app.Now(), e.cfg.DoneStatus()))
			}
			if len(tasks) == 0 {
				fmt.Fprintln(app.Out, "No tasks found.")
				return nil
			}
			return app.showTasks(e, tasks)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list tasks with this status")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Include sub-folders")
	cmd.Flags().BoolVar(&late, "overdue", false, "Only list open tasks past their due date")
	return cmd
}

func newArchiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "archive [N]",
		Short: "Move a task to the archive directory",
		Args:  cobra.MaximumNArgs(1),
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

			p := newPrompter(app.In, app.Out)
			selector, err := selection(app, e, p, tasks, args, "Enter the number of the task to archive")
			if err != nil {
				return err
			}
			name, err := e.store.Archive(tasks, selector)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(app.Out, "Invalid choice. Please try again.")
				return nil
			}
			if err != nil {
				return err
			}
			e.logAction("Archived task: %s", name)
			fmt.Fprintf(app.Out, "Task archived: %s\n", name)
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "export-csv",
		Aliases: []string{"export"},
		Short:   "Export tasks to a CSV file",
		Args:    cobra.NoArgs,
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
				fmt.Fprintln(app.Out, "No tasks found to export.")
				return nil
			}
			if err := export.ToFile(output, tasks); err != nil {
				return err
			}
			e.logAction("Exported %d tasks to %s", len(tasks), output)
			fmt.Fprintf(app.Out, "Tasks exported successfully to %s.\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", export.DefaultFile, "CSV file to write")
	return cmd
}

func newSearchCmd(app *App) *cobra.Command {
	var tagOnly bool

	cmd := &cobra.Command{
		Use:   "search KEYWORD",
		Short: "Search task files for a keyword",
		Args:  cobra.ExactArgs(1),
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
			found, err := store.Search(tasks, args[0], tagOnly)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintf(app.Out, "No tasks found containing the keyword: %s\n", args[0])
				return nil
			}
			for _, t := range found {
				fmt.Fprintf(app.Out, "Found in: %s (%s)\n", t.FileName+".md", t.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&tagOnly, "tag", false, "Search tags only")
	return cmd
}

func newFilterCmd(app *App) *cobra.Command {
	f := store.DefaultFilter()

	cmd := &cobra.Command{
		Use:     "filter-tasks",
		Aliases: []string{"filter"},
		Short:   "List tasks within a priority range",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.MinPriority > f.MaxPriority {
				return fmt.Errorf("--min-priority %d is above --max-priority %d", f.MinPriority, f.MaxPriority)
			}
			e, err := app.env()
			if err != nil {
				return err
			}
			tasks, err := e.listSorted(store.ListOptions{})
			if err != nil {
				return err
			}
			matched := f.Apply(tasks)
			if len(matched) == 0 {
				fmt.Fprintln(app.Out, "No tasks found matching the specified criteria.")
				return nil
			}
			return app.showTasks(e, matched)
		},
	}
	cmd.Flags().IntVar(&f.MinPriority, "min-priority", f.MinPriority, "Minimum priority score")
	cmd.Flags().IntVar(&f.MaxPriority, "max-priority", f.MaxPriority, "Maximum priority score")
	cmd.Flags().StringVar(&f.Tag, "tag", "", "Only tasks carrying this tag")
	return cmd
}
