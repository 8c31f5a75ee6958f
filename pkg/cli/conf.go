package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/priority-manager/pkg/config"
)

func newConfCmd(app *App) *cobra.Command {
	var show, initFile bool

	cmd := &cobra.Command{
		Use:     "conf",
		Aliases: []string{"cnf"},
		Short:   "Show, create or edit config.yaml",
		Long: `Without flags config.yaml is opened in $EDITOR, after writing the default
configuration if the file does not exist yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}

			if show {
				cfg, err := app.LoadConfig()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				fmt.Fprintf(app.Out, "# %s\n%s", path, data)
				return nil
			}

			created, err := writeDefaultConfig(path)
			if err != nil {
				return err
			}
			if initFile {
				if created {
					fmt.Fprintf(app.Out, "Wrote default configuration to %s\n", path)
				} else {
					fmt.Fprintf(app.Out, "Configuration already exists at %s\n", path)
				}
				return nil
			}

			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = "vi"
			}
			c := exec.Command(editor, path)
			c.Stdin = app.In
			c.Stdout = app.Out
			c.Stderr = app.Err
			return c.Run()
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print the config file path and effective configuration")
	cmd.Flags().BoolVar(&initFile, "init", false, "Write the default configuration if missing")
	return cmd
}

func writeDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := config.Save(config.DefaultConfig(filepath.Dir(path)), path); err != nil {
		return false, err
	}
	return true, nil
}
