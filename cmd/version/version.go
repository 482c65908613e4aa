package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/foodscan/internal/app"
)

// Command creates the version command.
func Command(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), rt.BuildInfo.String())
		},
	}
}
