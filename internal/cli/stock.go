package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/stock"
)

type restockFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type restockResult struct {
	Product string `json:"product"`
	Added   int    `json:"added"`
	Stock   int64  `json:"stock"`
}

// NewRestockCommand creates the restock command.
func NewRestockCommand(rootOpts *RootOptions) *cobra.Command {
	var asFiles bool

	cmd := &cobra.Command{
		Use:   "restock <product> [file...]",
		Short: "Add stock to a product",
		Long: `Add stock to a product on the server.

Without --files every input is read as newline separated units (line-mode
products). With --files every input file becomes one unit (file-mode
products). With no files, units are read from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestock(cmd, rootOpts, args[0], args[1:], asFiles)
		},
	}

	cmd.Flags().BoolVar(&asFiles, "files", false, "send every input file as one unit")
	return cmd
}

func runRestock(cmd *cobra.Command, opts *RootOptions, product string, paths []string, asFiles bool) error {
	ctx := cmd.Context()
	path := "/api/v1/admin/products/" + url.PathEscape(product) + "/restock"

	var (
		data []byte
		err  error
	)
	switch {
	case asFiles:
		if len(paths) == 0 {
			return fmt.Errorf("--files needs at least one file")
		}
		files := make([]restockFile, 0, len(paths))
		for _, p := range paths {
			content, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			files = append(files, restockFile{Name: filepath.Base(p), Content: string(content)})
		}
		data, err = opts.client().Do(ctx, http.MethodPost, path, map[string]any{"files": files})
	default:
		text, rerr := readInputs(cmd.InOrStdin(), paths)
		if rerr != nil {
			return rerr
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("no stock units to add")
		}
		data, err = opts.client().DoText(ctx, http.MethodPost, path, text)
	}
	if err != nil {
		return err
	}

	var res restockResult
	return opts.render(cmd.OutOrStdout(), data, &res, func(w io.Writer) {
		fmt.Fprintf(w, "Added %d units to %s (stock: %d)\n", res.Added, res.Product, res.Stock)
	})
}

// readInputs concatenates files, or stdin when paths is empty.
func readInputs(stdin io.Reader, paths []string) (string, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	var b strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Recount every product's stock on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rootOpts.client().Do(cmd.Context(), http.MethodPost, "/api/v1/admin/stock/sync", nil)
			if err != nil {
				return err
			}
			var res struct {
				Synced  int                     `json:"synced"`
				Results []model.StockSyncResult `json:"results"`
			}
			return rootOpts.render(cmd.OutOrStdout(), data, &res, func(w io.Writer) {
				if res.Synced == 0 {
					fmt.Fprintln(w, "All stock counts in sync")
					return
				}
				for _, r := range res.Results {
					fmt.Fprintf(w, "%-24s %6d -> %-6d (%+d)\n", r.Name, r.OldStock, r.NewStock, r.Difference)
				}
			})
		},
	}
}

// NewCountCommand creates the local count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root string
		mode string
	)

	cmd := &cobra.Command{
		Use:   "count <product>",
		Short: "Count a product's units directly from the stock directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := stock.Open(root, args[0], model.InventoryMode(mode))
			if err != nil {
				return err
			}
			n, err := st.Count(cmd.Context())
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"product": args[0], "stock": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], n)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", envOr("STOCK_ROOT", "./stock"), "stock root directory")
	cmd.Flags().StringVar(&mode, "mode", string(model.ModeLine), "inventory mode (line|file)")
	return cmd
}

func splitNonEmpty(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
