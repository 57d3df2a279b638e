package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"nosam/internal/cli"
)

var noColor bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nosamctl",
		Short:         "Administer a nosam object store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	root.AddCommand(
		newExportCmd(),
		newImportCmd(),
		newClearCmd(),
		newStatsCmd(),
		newRenewalsCmd(),
		newConvertCmd(),
		newSeedProductsCmd(),
		newRatesCmd(),
		newWatchCmd(),
	)
	return root
}

func main() {
	cli.LoadEnvFile()

	ctx, stop := cli.SignalContext(context.Background(), cli.SetupLogger(os.Stderr, "error"))
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
