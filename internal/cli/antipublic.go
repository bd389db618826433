package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"fulfillment-api/internal/antipublic"
	"fulfillment-api/internal/model"
)

// NewAntipublicCommand creates the antipublic command group.
func NewAntipublicCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "antipublic",
		Short: "Inspect and extend the delivered-identity ledger",
	}
	cmd.AddCommand(newAntipublicLookupCommand(rootOpts))
	cmd.AddCommand(newAntipublicAddCommand(rootOpts))
	cmd.AddCommand(newAntipublicStatsCommand(rootOpts))
	return cmd
}

func newAntipublicLookupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <identity>",
		Short: "Show who received an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rootOpts.client().Do(cmd.Context(), http.MethodGet,
				"/api/v1/admin/antipublic/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			var rec model.DeliveredIdentity
			return rootOpts.render(cmd.OutOrStdout(), data, &rec, func(w io.Writer) {
				fmt.Fprintf(w, "%s delivered to %s in %s (%s) at %s\n",
					rec.Identity, rec.UserID, rec.OrderID, rec.Product, rec.DeliveredAt.Format("2006-01-02 15:04:05"))
			})
		},
	}
}

func newAntipublicAddCommand(rootOpts *RootOptions) *cobra.Command {
	var userID, orderID, product string

	cmd := &cobra.Command{
		Use:   "add <identity>",
		Short: "Record an identity as delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rootOpts.client().Do(cmd.Context(), http.MethodPost, "/api/v1/admin/antipublic", map[string]string{
				"identity": args[0],
				"user_id":  userID,
				"order_id": orderID,
				"product":  product,
			})
			if err != nil {
				return err
			}
			var rec model.DeliveredIdentity
			return rootOpts.render(cmd.OutOrStdout(), data, &rec, func(w io.Writer) {
				fmt.Fprintf(w, "Recorded %s for %s\n", rec.Identity, rec.UserID)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user the identity was delivered to (required)")
	cmd.Flags().StringVar(&orderID, "order", "", "order id (default MANUAL)")
	cmd.Flags().StringVar(&product, "product", "", "product name (default manual)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newAntipublicStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rootOpts.client().Do(cmd.Context(), http.MethodGet, "/api/v1/admin/antipublic/stats", nil)
			if err != nil {
				return err
			}
			var stats model.LedgerStats
			return rootOpts.render(cmd.OutOrStdout(), data, &stats, func(w io.Writer) {
				fmt.Fprintf(w, "Delivered: %d\nUsers:     %d\nProducts:  %d\n",
					stats.TotalDelivered, stats.UniqueUsers, stats.ProductsDelivered)
			})
		},
	}
}

// NewIdentityCommand creates the local identity command.
func NewIdentityCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "identity [file...]",
		Short: "Print the identity extracted from every stock line",
		Long: `Print the identity the antipublic ledger would record for every
non-empty input line. Lines without an identity print "-".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInputs(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range splitNonEmpty(text) {
				id, ok := antipublic.ExtractIdentity(line)
				if !ok {
					id = "-"
				}
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}
