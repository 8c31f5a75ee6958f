// Package cli wires the priority-manager commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/priority-manager/pkg/actionlog"
	"github.com/harrisonrobin/priority-manager/pkg/auth"
	"github.com/harrisonrobin/priority-manager/pkg/colors"
	"github.com/harrisonrobin/priority-manager/pkg/config"
	"github.com/harrisonrobin/priority-manager/pkg/model"
	"github.com/harrisonrobin/priority-manager/pkg/remote"
	"github.com/harrisonrobin/priority-manager/pkg/remote/graph"
	"github.com/harrisonrobin/priority-manager/pkg/remote/gtasks"
	"github.com/harrisonrobin/priority-manager/pkg/store"
	"github.com/harrisonrobin/priority-manager/pkg/view"
)

// App carries the process-wide dependencies of the commands.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	Now        func() time.Time
	LoadConfig func() (*config.Config, error)
}

// NewApp returns an App bound to the standard streams.
func NewApp() *App {
	return &App{
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		Now:        time.Now,
		LoadConfig: config.Load,
	}
}

// env is what a single command invocation works with.
type env struct {
	cfg     *config.Config
	store   *store.Store
	actions *actionlog.Logger
}

func (a *App) env() (*env, error) {
	cfg, err := a.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	st := store.New(cfg.TasksDir(), cfg.ArchiveDir(), cfg.Statuses)
	st.Now = a.Now
	if err := st.EnsureDirs(); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: st, actions: newActionLog(a, cfg.LogPath())}, nil
}

func newActionLog(a *App, path string) *actionlog.Logger {
	l := actionlog.New(path)
	l.Now = a.Now
	return l
}

func (e *env) logAction(format string, args ...any) {
	if err := e.actions.Log(format, args...); err != nil {
		log.Printf("Warning: could not write action log: %v", err)
	}
}

// listSorted lists the store, recursing automatically when the top level
// only holds folders, and sorts by priority. The positions of the result
// are the selectors accepted by edit and archive.
func (e *env) listSorted(opts store.ListOptions) ([]model.Task, error) {
	if !opts.Recursive {
		auto, err := e.store.AutoRecursive()
		if err != nil {
			return nil, err
		}
		opts.Recursive = auto
	}
	tasks, err := e.store.List(opts)
	if err != nil {
		return nil, err
	}
	store.SortByPriority(tasks)
	return tasks, nil
}

func (e *env) columns() []view.Column {
	cols := make([]view.Column, len(e.cfg.Table.Columns))
	for i, c := range e.cfg.Table.Columns {
		cols[i] = view.Column{Name: c.Name, MaxLength: c.MaxLength}
	}
	return cols
}

func (a *App) showTasks(e *env, tasks []model.Task) error {
	cache, err := colors.Open(filepath.Join(e.cfg.Home(), "list_colors.json"))
	if err != nil {
		log.Printf("Warning: ignoring list color cache: %v", err)
		cache = nil
	}
	if err := view.Table(a.Out, tasks, e.columns(), cache); err != nil {
		return err
	}
	if err := cache.Save(); err != nil {
		log.Printf("Warning: could not save list color cache: %v", err)
	}
	return nil
}

// newRemote builds the client of the configured provider. It returns
// auth.ErrAuthRequired when no token is available.
func (a *App) newRemote(ctx context.Context, cfg *config.Config, requestLog *log.Logger) (remote.Client, error) {
	mgr := auth.NewManager(cfg)
	mgr.Out = a.Out
	httpClient, err := mgr.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}

	switch mgr.Provider {
	case config.ProviderGTasks:
		var opts []option.ClientOption
		if cfg.Remote.BaseURL != "" {
			opts = append(opts, option.WithEndpoint(cfg.Remote.BaseURL))
		}
		return gtasks.NewClient(ctx, httpClient, opts...)
	default:
		var opts []graph.Option
		if cfg.Remote.BaseURL != "" {
			opts = append(opts, graph.WithBaseURL(cfg.Remote.BaseURL))
		}
		if requestLog != nil {
			opts = append(opts, graph.WithLogger(requestLog))
		}
		return graph.New(httpClient, opts...), nil
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "priority-manager",
		Short: "Prioritized task manager backed by Markdown files",
		Long: `priority-manager keeps one Markdown file per task, scores tasks from
urgency, importance and effort, and syncs them with Microsoft To Do or
Google Tasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.AddCommand(
		newAddCmd(app),
		newEditCmd(app),
		newListCmd(app),
		newArchiveCmd(app),
		newExportCmd(app),
		newSearchCmd(app),
		newFilterCmd(app),
		newSyncCmd(app),
		newGanttCmd(app),
		newAuthCmd(app),
		newConfCmd(app),
	)
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	app := NewApp()
	root := NewRootCmd(app)
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(app.Err, "Error:", err)
		return err
	}
	return nil
}
