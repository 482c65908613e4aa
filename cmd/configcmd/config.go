package configcmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tphakala/foodscan/internal/app"
	"github.com/tphakala/foodscan/internal/conf"
)

// Command creates the config command. Its subcommands read settings but
// never start the application.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(showCommand(rt), initCommand(), saveCommand(rt))
	return cmd
}

func showCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := rt.LoadSettings()
			if err != nil {
				return err
			}
			data, err := conf.Marshal(conf.Redacted(settings))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func initCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := targetPath(args)
			if err != nil {
				return err
			}
			if err := conf.WriteDefaultConfig(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func saveCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "save <path>",
		Short: "Write the effective configuration, including environment overrides, to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := rt.LoadSettings()
			if err != nil {
				return err
			}
			path := filepath.Clean(args[0])
			if err := conf.SaveYAMLConfig(path, settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
			return nil
		},
	}
}

// targetPath returns the explicit path or config.yaml in the first default
// config directory.
func targetPath(args []string) (string, error) {
	if len(args) == 1 {
		return filepath.Clean(args[0]), nil
	}
	paths, err := conf.GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	return filepath.Join(paths[0], "config.yaml"), nil
}
