package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"fulfillment-api/internal/model"
)

// NewProductCommand creates the product command group.
func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage products",
	}
	cmd.AddCommand(newProductAddCommand(rootOpts))
	cmd.AddCommand(newProductRemoveCommand(rootOpts))
	cmd.AddCommand(newProductListCommand(rootOpts))
	return cmd
}

func newProductAddCommand(rootOpts *RootOptions) *cobra.Command {
	p := model.Product{}
	var mode string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create or replace a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			p.Mode = model.InventoryMode(mode)

			data, err := rootOpts.client().Do(cmd.Context(), http.MethodPost, "/api/v1/admin/products", p)
			if err != nil {
				return err
			}
			var saved model.Product
			return rootOpts.render(cmd.OutOrStdout(), data, &saved, func(w io.Writer) {
				fmt.Fprintf(w, "Saved %s (%s, price %.2f, cooldown %ds, stock %d)\n",
					saved.Name, saved.Mode, saved.Price, saved.CooldownSeconds, saved.Stock)
			})
		},
	}

	cmd.Flags().Float64Var(&p.Price, "price", 0, "unit price")
	cmd.Flags().Int64Var(&p.CooldownSeconds, "cooldown", 0, "per-user purchase cooldown in seconds")
	cmd.Flags().StringVar(&mode, "mode", string(model.ModeLine), "inventory mode (line|file)")
	cmd.Flags().IntVar(&p.PrecheckLevel, "precheck-level", model.PrecheckNone, "precheck level (0 off, 1 credentials, 2 reputation)")
	cmd.Flags().StringVar(&p.PrecheckFormat, "precheck-format", model.PrecheckFormatEmailPass, "precheck account format (email:pass|token|cookie)")
	return cmd
}

func newProductRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a product and its stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := rootOpts.client().Do(cmd.Context(), http.MethodDelete, "/api/v1/admin/products/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newProductListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List products with their stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rootOpts.client().Do(cmd.Context(), http.MethodGet, "/api/v1/products", nil)
			if err != nil {
				return err
			}
			var products []model.Product
			return rootOpts.render(cmd.OutOrStdout(), data, &products, func(w io.Writer) {
				for _, p := range products {
					fmt.Fprintf(w, "%-24s %-4s %8.2f %6d\n", p.Name, p.Mode, p.Price, p.Stock)
				}
			})
		},
	}
}
