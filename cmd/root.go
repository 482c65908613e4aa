package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/foodscan/cmd/avoid"
	"github.com/tphakala/foodscan/cmd/configcmd"
	"github.com/tphakala/foodscan/cmd/history"
	"github.com/tphakala/foodscan/cmd/prefs"
	"github.com/tphakala/foodscan/cmd/scan"
	"github.com/tphakala/foodscan/cmd/serve"
	"github.com/tphakala/foodscan/cmd/version"
	"github.com/tphakala/foodscan/internal/app"
)

// Commands annotated with this key run without a wired App.
const skipStartAnnotation = "foodscan/skip-start"

// RootCommand creates and returns the root command. The caller stops rt
// after Execute returns.
func RootCommand(rt *app.Runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "foodscan",
		Short:         "FoodScan CLI",
		Long:          "Scan food products by barcode or label photo and evaluate them against your dietary preferences.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, rt); err != nil {
		panic(err)
	}

	configCmd := configcmd.Command(rt)
	versionCmd := version.Command(rt)
	configCmd.Annotations = map[string]string{skipStartAnnotation: "true"}
	versionCmd.Annotations = map[string]string{skipStartAnnotation: "true"}

	subcommands := []*cobra.Command{
		scan.Command(rt),
		avoid.Command(rt),
		history.Command(rt),
		prefs.Command(rt),
		serve.Command(rt),
		configCmd,
		versionCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if skipStart(cmd) {
			return nil
		}
		// only serve logs to the console at the configured level
		quiet := cmd.Name() != "serve"
		return rt.Start(cmd.Context(), quiet)
	}

	return rootCmd
}

// skipStart reports whether cmd or one of its parents opts out of App setup.
func skipStart(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipStartAnnotation] == "true" {
			return true
		}
	}
	return false
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, rt *app.Runtime) error {
	rootCmd.PersistentFlags().StringVarP(&rt.ConfigFile, "config", "c", "", "Path to config file (default: search standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Run as a signed-in user whose records persist in the remote store")

	if err := viper.BindPFlag("main.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("main.user", rootCmd.PersistentFlags().Lookup("user")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
