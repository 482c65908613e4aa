package history

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/foodscan/internal/app"
	"github.com/tphakala/foodscan/internal/cli"
	"github.com/tphakala/foodscan/internal/product"
)

// Command creates the history command for browsing stored products.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse scanned and avoided products",
	}
	cmd.AddCommand(listCommand(rt), showCommand(rt), removeCommand(rt), clearCommand(rt))
	return cmd
}

func listCommand(rt *app.Runtime) *cobra.Command {
	var (
		avoided bool
		all     bool
		barcode string
		limit   int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored products, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := rt.App.OpenWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			filter := product.Filter{Barcode: barcode, Limit: limit}
			if !all {
				filter.Avoided = product.Bool(avoided)
			}
			products, err := ws.Store.ListProducts(ctx, filter)
			if err != nil {
				return err
			}
			cli.Products(cmd.OutOrStdout(), products)
			return nil
		},
	}
	cmd.Flags().BoolVar(&avoided, "avoided", false, "List the avoid list instead of scan history")
	cmd.Flags().BoolVar(&all, "all", false, "List scan history and avoid list together")
	cmd.Flags().StringVar(&barcode, "barcode", "", "Only list products with this barcode")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of products (0 for all)")
	return cmd
}

func showCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored product and evaluate it against current preferences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := rt.App.OpenWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			p, err := ws.Store.GetProductByClientSideID(ctx, args[0])
			if err != nil {
				return err
			}
			eval, categories, err := ws.Scanner.Reevaluate(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cli.Product(out, p)
			fmt.Fprintln(out, "\nWith current preferences:")
			cli.Evaluation(out, eval, categories)
			return nil
		},
	}
}

func removeCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a stored product",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := rt.App.OpenWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.Store.RemoveProduct(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func clearCommand(rt *app.Runtime) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear history without --yes")
			}
			ctx := cmd.Context()
			ws, err := rt.App.OpenWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.Store.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm removal of every stored product")
	return cmd
}
