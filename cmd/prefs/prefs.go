package prefs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/foodscan/internal/app"
	"github.com/tphakala/foodscan/internal/cli"
	"github.com/tphakala/foodscan/internal/product"
)

// Command creates the prefs command for viewing and changing preferences.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change your dietary preferences",
	}
	cmd.AddCommand(showCommand(rt), setCommand(rt))
	return cmd
}

func showCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.App.OpenWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			cli.Preferences(cmd.OutOrStdout(), ws.Preferences.GetPreferences())
			return nil
		},
	}
}

func setCommand(rt *app.Runtime) *cobra.Command {
	var (
		avoid       []string
		custom      []string
		maxCalories float64
		noMax       bool
		goal        string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change preferences; flags not given keep their current value",
		Example: "  foodscan prefs set --avoid gluten,lactose --custom \"palm oil\"\n" +
			"  foodscan prefs set --max-calories 250 --goal lose_weight",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := rt.App.OpenWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			prefs := ws.Preferences.GetPreferences()
			flags := cmd.Flags()
			if flags.Changed("avoid") {
				prefs.AvoidedIngredients = avoid
			}
			if flags.Changed("custom") {
				prefs.CustomAvoidedIngredients = custom
			}
			switch {
			case noMax:
				prefs.MaxCalories = nil
			case flags.Changed("max-calories"):
				prefs.MaxCalories = product.Float(maxCalories)
			}
			if flags.Changed("goal") {
				prefs.Goal = product.Goal(goal)
			}

			updated, err := ws.Preferences.Update(ctx, prefs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cli.Preferences(out, updated)
			if !rt.App.Identity().Authenticated() {
				fmt.Fprintln(out, "\nNote: anonymous preferences last for this run only. Use --user to keep them.")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&avoid, "avoid", nil, "Predefined ingredients to avoid, comma separated")
	cmd.Flags().StringSliceVar(&custom, "custom", nil, "Custom ingredients to avoid, comma separated")
	cmd.Flags().Float64Var(&maxCalories, "max-calories", 0, "Calorie ceiling per 100g")
	cmd.Flags().BoolVar(&noMax, "no-max-calories", false, "Remove the calorie ceiling")
	cmd.Flags().StringVar(&goal, "goal", "", "Dietary goal: maintain, lose_weight, gain_muscle or eat_healthier")
	cmd.MarkFlagsMutuallyExclusive("max-calories", "no-max-calories")
	return cmd
}
