package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/layer-3/stockflow/service"
	"github.com/spf13/cobra"
)

var productFilter service.ProductFilter

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List inventory products",
	RunE:  runProducts,
}

func init() {
	rootCmd.AddCommand(productsCmd)

	productsCmd.Flags().StringVar(&productFilter.Category, "category", "", "only products of this category")
	productsCmd.Flags().StringVar(&productFilter.Status, "status", "", "only products with this status (active, low_stock, out_of_stock)")
	productsCmd.Flags().StringVar(&productFilter.Search, "search", "", "match name or SKU")
}

func runProducts(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.resources.ListProducts(cmd.Context(), productFilter)
	if err != nil {
		return explain(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tNAME\tCATEGORY\tQTY\tPRICE\tSTATUS")
	for _, p := range products {
		status := p.Status
		if p.NeedsReorder() {
			status += " (reorder)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", p.SKU, p.Name, p.Category, p.Quantity, p.UnitPrice.StringFixed(2), status)
	}

	return w.Flush()
}
