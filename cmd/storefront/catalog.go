package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rkayurveda/storefront/commerce"
	"github.com/rkayurveda/storefront/core"
)

type catalogOptions struct {
	*rootOptions
	YAML bool
}

func newCatalogCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &catalogOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the product catalog the server would start with",
		Long: `Print the product catalog the server would start with.

With --yaml the output is a seed file that can be edited and passed back
through --seed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.NewConfig(opts.configOptions(cmd)...)
			if err != nil {
				return err
			}
			products, err := commerce.LoadProducts(cfg.Store.SeedFile)
			if err != nil {
				return err
			}
			if opts.YAML {
				return printCatalogYAML(cmd, products)
			}
			return printCatalogTable(cmd, products)
		},
	}

	cmd.Flags().BoolVar(&opts.YAML, "yaml", false, "print as a YAML seed file")

	return cmd
}

func printCatalogTable(cmd *cobra.Command, products []commerce.Product) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tMRP\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", p.ID, p.Name, p.Category, p.Price, p.MRP, p.StockStatus)
	}
	return tw.Flush()
}

func printCatalogYAML(cmd *cobra.Command, products []commerce.Product) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]commerce.Product{"products": products}); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storefront %s (api %s, commit %s, built %s)\n",
				core.Version, core.APIVersion, core.GitCommit, core.BuildDate)
		},
	}
}
