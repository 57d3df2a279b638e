package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nosam/internal/amqp"
	"nosam/internal/cli"
	"nosam/internal/core"
	"nosam/internal/worker"
)

// withApp opens the configured store for the duration of fn. Store events
// are published while fn runs when a broker is configured.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if app.Events != nil {
		go app.Events.Run(ctx)
	}

	runErr := fn(ctx, app)
	cancel()
	return errors.Join(runErr, app.Close())
}

// --- export / import ---

func newExportCmd() *cobra.Command {
	var out, objectType string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every collection as one JSON document",
		Long: `Write every collection as one JSON document, or with --type one
collection as a JSON array.

Examples:
  nosamctl export > backup.json
  nosamctl export --out backup.json
  nosamctl export --type subscription -o subscriptions.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				var (
					doc     any
					summary string
				)
				if objectType == "" {
					snap, err := app.Client.ExportAll(ctx).Await(ctx)
					if err != nil {
						return err
					}
					doc, summary = snap, fmt.Sprintf("%d collections", len(snap))
				} else {
					objs, err := app.Client.ExportCollection(ctx, objectType).Await(ctx)
					if err != nil {
						return err
					}
					doc, summary = objs, fmt.Sprintf("%d %s objects", len(objs), objectType)
				}
				if out == "" {
					return printJSON(cmd.OutOrStdout(), doc)
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				if err := printJSON(f, doc); err != nil {
					return err
				}
				printSuccess("Exported %s to %s", summary, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVarP(&objectType, "type", "t", "", "export only this object type")
	return cmd
}

func newImportCmd() *cobra.Command {
	var objectType string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the collections named in an exported document",
		Long: `Replace the collections named in an exported document. With --type the
file holds one collection as a JSON array and only that type is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if objectType != "" {
					_, err = app.Client.ImportCollection(ctx, objectType, raw).Await(ctx)
				} else {
					_, err = app.Client.ImportAll(ctx, raw).Await(ctx)
				}
				if err != nil {
					return err
				}
				printSuccess("Imported %s", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&objectType, "type", "t", "", "the file holds only this object type")
	return cmd
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear <type>",
		Short: "Remove every object of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear %q without --yes", args[0])
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Client.ClearCollection(ctx, args[0]).Await(ctx)
				if err != nil {
					return err
				}
				if !res.Success {
					return errors.New(res.Error)
				}
				printSuccess("Cleared %s", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

// --- stats ---

func newStatsCmd() *cobra.Command {
	var display string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show subscription totals in the display currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				dash, err := app.Stats.Dashboard(ctx, strings.ToUpper(display))
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), dash)
				}
				w := cmd.OutOrStdout()
				cur := dash.Stats.Currency
				printStatus(w, "Subscriptions", "%d", dash.Stats.Total)
				printStatus(w, "Monthly", "%s", app.Table.Format(dash.Stats.MonthlyTotal, cur, true))
				printStatus(w, "Yearly", "%s", app.Table.Format(dash.Stats.YearlyTotal, cur, true))
				printStatus(w, "Average", "%s", app.Table.Format(dash.Stats.AvgPrice, cur, true))
				if dash.Skipped > 0 {
					printWarning("%d stored subscriptions could not be read", dash.Skipped)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&display, "currency", "", "display currency (default: stored preference)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full dashboard as JSON")
	return cmd
}

func newRenewalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renewals",
		Short: "List subscriptions that are expiring or expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				renewals, err := app.Stats.Renewals(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(renewals) == 0 {
					fmt.Fprintln(w, "No renewals due")
					return nil
				}
				for _, r := range renewals {
					fmt.Fprintf(w, "%-24s %-8s %s (%d days)\n",
						r.Name, r.Status, r.EndDate.Format("2006-01-02"), r.DaysRemaining)
				}
				return nil
			})
		},
	}
}

// --- currency ---

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between currencies",
		Long: `Convert an amount between currencies using the current rate table.

Examples:
  nosamctl convert 100 USD CNY
  nosamctl convert 12,50 eur usd`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], err)
			}
			from, to := strings.ToUpper(args[1]), strings.ToUpper(args[2])
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				result, err := app.Table.Convert(amount, from, to)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n",
					app.Table.Format(amount, from, true),
					app.Table.Format(result, to, true))
				return nil
			})
		},
	}
}

func newRatesCmd() *cobra.Command {
	rates := &cobra.Command{
		Use:   "rates",
		Short: "Manage exchange rates",
	}
	var force bool
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the latest exchange rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if !force {
					refreshed, err := app.Refresher.RefreshIfStale(ctx)
					if err != nil {
						return err
					}
					if !refreshed {
						printSuccess("Rates are less than a day old")
					} else {
						printSuccess("Rates refreshed")
					}
					return nil
				}
				res, err := app.Refresher.Refresh(ctx)
				if err != nil {
					return err
				}
				printSuccess("Refreshed %d rates against %s", res.Count, res.Base)
				return nil
			})
		},
	}
	refresh.Flags().BoolVar(&force, "force", false, "refresh even when the rates are fresh")
	rates.AddCommand(refresh)
	return rates
}

// --- products ---

func newSeedProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-products",
		Short: "Store the built-in AI product catalog when none is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				n, err := app.Catalog.SeedDefaults(ctx)
				if err != nil {
					return err
				}
				if n == 0 {
					printSuccess("Product catalog already present")
					return nil
				}
				printSuccess("Seeded %d products", n)
				return nil
			})
		},
	}
}

// --- events ---

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Log object events from the broker until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if app.Events == nil {
					return errors.New("AMQP_URL is not configured or the broker is unreachable")
				}
				handle := worker.EventLogger(app.Logger)
				err := app.Events.Consume(ctx, func(e amqp.ObjectEvent) error {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %-7s %s/%s\n",
						e.Timestamp.Format("15:04:05.000"), e.Action, e.ObjectType, e.ObjectID)
					return handle(e)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}
