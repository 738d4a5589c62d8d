// Command storefront runs the Radhe Krishna Ayurveda storefront API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rkayurveda/storefront/core"
)

// rootOptions holds flags shared by every subcommand
type rootOptions struct {
	ConfigFile string
	SeedFile   string
	LogLevel   string
	LogFormat  string
	Dev        bool
}

// configOptions turns the shared flags into config options. Only flags the
// user actually set override lower layers.
func (o *rootOptions) configOptions(cmd *cobra.Command) []core.Option {
	var opts []core.Option
	if o.ConfigFile != "" {
		opts = append(opts, core.WithConfigFile(o.ConfigFile))
	}
	if cmd.Flags().Changed("dev") {
		opts = append(opts, core.WithDevelopmentMode(o.Dev))
	}
	if o.SeedFile != "" {
		opts = append(opts, core.WithSeedFile(o.SeedFile))
	}
	if o.LogLevel != "" {
		opts = append(opts, core.WithLogLevel(o.LogLevel))
	}
	if o.LogFormat != "" {
		opts = append(opts, core.WithLogFormat(o.LogFormat))
	}
	return opts
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Ayurvedic product storefront",
		Long: `Storefront serves the product catalog, cart, checkout, OTP login and
admin endpoints as a JSON API. Orders are handed off to the shop over WhatsApp.

Configuration comes from defaults, a .env file, STOREFRONT_* environment
variables, an optional --config file and finally command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML or JSON config file")
	cmd.PersistentFlags().StringVar(&opts.SeedFile, "seed", "", "YAML catalog replacing the built-in products")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json or text)")
	cmd.PersistentFlags().BoolVar(&opts.Dev, "dev", false, "development mode: text logs at debug level")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
