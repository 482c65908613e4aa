package avoid

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/foodscan/internal/app"
	"github.com/tphakala/foodscan/internal/cli"
	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/product"
)

// Command creates the avoid command with its add and list subcommands.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avoid",
		Short: "Manage your avoid list",
	}
	cmd.AddCommand(addCommand(rt), listCommand(rt))
	return cmd
}

func listCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List products on your avoid list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := rt.App.OpenWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			products, err := ws.Store.ListProducts(ctx, product.Filter{Avoided: product.Bool(true)})
			if err != nil {
				return err
			}
			cli.Products(cmd.OutOrStdout(), products)
			return nil
		},
	}
}

// addCommand saves a product to the avoid list.
func addCommand(rt *app.Runtime) *cobra.Command {
	var (
		barcode     string
		name        string
		brand       string
		ingredients []string
		calories    float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to your avoid list",
		Long: "Save a product you want to avoid. With --barcode the product is looked up first; " +
			"otherwise it is stored as entered with --name, --brand and --ingredients.",
		Example: "  foodscan avoid add --barcode 737628064502\n" +
			"  foodscan avoid add --name \"Choco Bar\" --brand Acme --ingredients sugar,cocoa,milk",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			barcode = strings.TrimSpace(barcode)
			if barcode == "" && strings.TrimSpace(name) == "" {
				return errors.NewStd("either --barcode or --name is required")
			}

			ws, err := rt.App.OpenWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			var p *product.Product
			if name == "" {
				p, err = ws.Scanner.AvoidBarcode(ctx, barcode)
			} else {
				partial := &product.PartialProduct{
					Name:        name,
					Brand:       brand,
					Barcode:     barcode,
					Ingredients: ingredients,
					Source:      product.SourceManual,
				}
				if cmd.Flags().Changed("calories") {
					partial.Calories = product.Float(calories)
				}
				p, err = ws.Scanner.AddToAvoidList(ctx, partial)
			}
			if err != nil {
				return err
			}
			cli.Product(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.Flags().StringVar(&barcode, "barcode", "", "Barcode of the product")
	cmd.Flags().StringVar(&name, "name", "", "Product name for a manual entry")
	cmd.Flags().StringVar(&brand, "brand", "", "Brand for a manual entry")
	cmd.Flags().StringSliceVar(&ingredients, "ingredients", nil, "Comma separated ingredients for a manual entry")
	cmd.Flags().Float64Var(&calories, "calories", 0, "Calories per 100g for a manual entry")

	return cmd
}
