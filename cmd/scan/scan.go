package scan

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/foodscan/internal/app"
	"github.com/tphakala/foodscan/internal/cli"
	"github.com/tphakala/foodscan/internal/product"
	"github.com/tphakala/foodscan/internal/workspace"
)

// Command creates the scan command with its barcode and label subcommands.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a product and evaluate it",
		Long:  "Look up a product by barcode or extract it from a label photo, evaluate it against your preferences and store it in your history.",
	}
	cmd.AddCommand(barcodeCommand(rt), labelCommand(rt))
	return cmd
}

func barcodeCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "barcode <code>",
		Short: "Scan a product by barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			return run(cmd, rt, func(ctx context.Context, ws *workspace.Workspace) (*product.Product, error) {
				return ws.Scanner.ScanBarcode(ctx, code)
			})
		},
	}
}

func labelCommand(rt *app.Runtime) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "label <image>",
		Short: "Scan a product from a photo of its label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(filepath.Clean(args[0]))
			if err != nil {
				return err
			}
			if contentType == "" {
				contentType = http.DetectContentType(image)
			}
			return run(cmd, rt, func(ctx context.Context, ws *workspace.Workspace) (*product.Product, error) {
				return ws.Scanner.ScanLabel(ctx, image, contentType)
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Image MIME type (default: detected from the file)")
	return cmd
}

// run scans within the CLI workspace, then prints the stored product and the
// notifications the scan raised.
func run(cmd *cobra.Command, rt *app.Runtime, scan func(context.Context, *workspace.Workspace) (*product.Product, error)) error {
	ctx := cmd.Context()
	ws, err := rt.App.OpenWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	start := time.Now()
	p, err := scan(ctx, ws)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	cli.Product(out, p)
	cli.Notifications(out, rt.App.Notifications.List(0), start)
	return nil
}
