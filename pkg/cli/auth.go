package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/priority-manager/pkg/auth"
)

func newAuthCmd(app *App) *cobra.Command {
	var silent, resetCache, showConfig bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to the remote service and cache the token",
		Long: `Sign in to Microsoft To Do with a device code, or to Google Tasks through
the browser, and cache the token for sync.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			mgr := auth.NewManager(cfg)
			mgr.Out = app.Out

			if showConfig {
				fmt.Fprintf(app.Out, "provider=%s\nclient_id=%s\ntenant=%s\n", mgr.Provider, mgr.ClientID, mgr.Tenant)
				return nil
			}

			if resetCache {
				existed, err := mgr.ResetCache()
				switch {
				case err != nil:
					fmt.Fprintf(app.Out, "Failed to delete cache: %v\n", err)
				case existed:
					fmt.Fprintf(app.Out, "Deleted cache: %s\n", mgr.CachePath)
				default:
					fmt.Fprintln(app.Out, "No cache file present.")
				}
				if silent {
					return nil
				}
			}

			_, err = mgr.Login(cmd.Context(), silent)
			switch {
			case err == nil && silent:
				fmt.Fprintln(app.Out, "Cached token available.")
			case err == nil:
				fmt.Fprintln(app.Out, "Authentication successful; token cached.")
			case silent && errors.Is(err, auth.ErrAuthRequired):
				fmt.Fprintln(app.Out, "No cached token found.")
			default:
				fmt.Fprintf(app.Out, "Authentication not completed: %v\n", err)
				fmt.Fprintln(app.Out, "  - Make sure the sign-in was finished in the browser.")
				fmt.Fprintln(app.Out, "  - Remove a stale remote.token from config.yaml so the cached token is used.")
				fmt.Fprintln(app.Out, "  - Optionally set your own client_id and tenant under remote in config.yaml.")
			}
			if err == nil {
				e := &env{cfg: cfg, actions: newActionLog(app, cfg.LogPath())}
				e.logAction("Authenticated with %s", mgr.Provider)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&silent, "silent", false, "Only use the cached token")
	f.BoolVar(&resetCache, "reset-cache", false, "Delete the token cache first")
	f.BoolVar(&showConfig, "show-config", false, "Show the provider, client id and tenant")
	return cmd
}
