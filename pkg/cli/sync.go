package cli

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/priority-manager/pkg/auth"
	"github.com/harrisonrobin/priority-manager/pkg/config"
	"github.com/harrisonrobin/priority-manager/pkg/reconcile"
	"github.com/harrisonrobin/priority-manager/pkg/remote"
)

const tokenHelpURL = "https://developer.microsoft.com/en-us/graph/graph-explorer"

func newSyncCmd(app *App) *cobra.Command {
	var push, pull, both bool
	var req reconcile.Request
	var verbose bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize tasks with the remote to-do service",
		Long: `Synchronize tasks with Microsoft To Do or Google Tasks. Tasks are matched
by title and never deleted or overwritten. --push (default) uploads local
tasks missing remotely, --pull downloads remote tasks missing locally and
--both does both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := reconcile.ParseMode(push, pull, both)
			if err != nil {
				return err
			}
			req.Mode = mode

			e, err := app.env()
			if err != nil {
				return err
			}
			if req.ListName == "" {
				req.ListName = e.cfg.Remote.ListName
			}
			if req.Folders && !req.AllLists {
				fmt.Fprintln(app.Out, "Note: --folders only applies together with --all-lists.")
			}

			logger := log.New(app.Out, "", 0)
			var requestLog *log.Logger
			if verbose {
				requestLog = logger
			}

			ctx := cmd.Context()
			client, err := app.newRemote(ctx, e.cfg, requestLog)
			if errors.Is(err, auth.ErrAuthRequired) {
				printTokenHelp(app, e.cfg)
				fmt.Fprintln(app.Out, "Aborting sync; token required.")
				return nil
			}
			if err != nil {
				return err
			}

			engine := &reconcile.Engine{
				Store:      e.store,
				Remote:     client,
				OpenStatus: e.cfg.OpenStatus(),
				Logger:     logger,
				Verbose:    verbose,
			}
			res, err := engine.Sync(ctx, req)
			if errors.Is(err, reconcile.ErrUnauthorized) {
				fmt.Fprintln(app.Out, "Unauthorized (401): the remote service rejected the access token.")
				var httpErr *remote.HTTPError
				if verbose && errors.As(err, &httpErr) {
					fmt.Fprintf(app.Out, "Response: %s\n", httpErr.Body)
				}
				fmt.Fprintln(app.Out, "Refresh the token with 'priority-manager auth' or update MS_TODO_TOKEN, then re-run sync.")
				return nil
			}
			if err != nil {
				return err
			}

			e.logAction("Synced (%s): pushed %d, pulled %d", mode, res.Pushed, res.Pulled)
			switch mode {
			case reconcile.Push:
				fmt.Fprintf(app.Out, "Synchronized tasks. Created %d new task(s) remotely; %d already present.\n",
					res.Pushed, res.RemoteExisting)
			case reconcile.Pull:
				fmt.Fprintf(app.Out, "Synchronized tasks. Pulled %d new task(s) from the remote service.\n", res.Pulled)
			default:
				fmt.Fprintf(app.Out, "Synchronized tasks. Pushed %d, pulled %d; %d already present remotely.\n",
					res.Pushed, res.Pulled, res.RemoteExisting)
			}
			for _, name := range res.SkippedLists {
				fmt.Fprintf(app.Out, "Skipped list: %s\n", name)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&push, "push", false, "Upload local tasks missing remotely (default)")
	f.BoolVar(&pull, "pull", false, "Download remote tasks missing locally")
	f.BoolVar(&both, "both", false, "Push then pull")
	f.StringVar(&req.ListName, "list", "", "Remote list name (defaults to remote.list_name)")
	f.BoolVar(&req.AllLists, "all-lists", false, "Pull from every remote list")
	f.BoolVar(&req.Folders, "folders", false, "With --all-lists, store each list in its own sub-folder")
	f.BoolVarP(&verbose, "verbose", "v", false, "Log every request and failure details")
	return cmd
}

func printTokenHelp(app *App, cfg *config.Config) {
	if cfg.Remote.Provider == config.ProviderGTasks {
		fmt.Fprintln(app.Out, "No Google Tasks token is cached.")
		fmt.Fprintln(app.Out, "Run: priority-manager auth")
		return
	}
	fmt.Fprintf(app.Out, "%s is not set (env or config).\n", auth.TokenEnv)
	fmt.Fprintln(app.Out, "Either run 'priority-manager auth' to sign in with a device code, or set a temporary token:")
	fmt.Fprintf(app.Out, "  1. Open: %s\n", tokenHelpURL)
	fmt.Fprintln(app.Out, "  2. Sign in, consent to Tasks.ReadWrite, run a sample.")
	fmt.Fprintf(app.Out, "  3. Copy the access token and export %s=<token>, or set remote.token in config.yaml.\n", auth.TokenEnv)
	fmt.Fprintln(app.Out, "Then re-run: priority-manager sync")
}
