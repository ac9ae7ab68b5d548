package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"ledgerbot/internal/core"
	"ledgerbot/internal/parser"
	"ledgerbot/internal/services"
	"ledgerbot/internal/storage"
)

// Opener opens the ledger for one command. close releases it.
type Opener func(ctx context.Context) (ledger *services.LedgerService, close func() error, err error)

// Ctl holds what ledgerctl commands need.
type Ctl struct {
	Open Opener
	// DBPath is the SQLite file migrate works on.
	DBPath string
}

// NewRootCommand creates the ledgerctl command tree.
func NewRootCommand(ctl *Ctl) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and administer the ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	root.AddCommand(
		newBalanceCommand(ctl),
		newStatsCommand(ctl),
		newCategoriesCommand(ctl),
		newSampleCommand(ctl),
		newMigrateCommand(ctl),
	)
	return root
}

// withLedger opens the ledger, runs fn and closes it again.
func (c *Ctl) withLedger(cmd *cobra.Command, fn func(ctx context.Context, ledger *services.LedgerService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ledger, closeFn, err := c.Open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, ledger)
}

func newBalanceCommand(ctl *Ctl) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctl.withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				balance, err := ledger.Balance(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", core.FormatAmount(balance))
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <amount>",
		Short: "Override the balance without touching the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseSignedAmount(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			return ctl.withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				previous, err := ledger.SetBalance(ctx, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Balance set to %s (was %s)\n",
					core.FormatAmount(amount), core.FormatAmount(previous))
				return nil
			})
		},
	})
	return cmd
}

func newStatsCommand(ctl *Ctl) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [month [year]]",
		Short: "Show statistics for a month (default: current month)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctl.withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				text := "month"
				if len(args) > 0 {
					text = strings.Join(args, " ")
				}
				year, month, err := parser.ParseMonth(text, ledger.Now())
				if err != nil {
					return err
				}
				stats, err := ledger.MonthStatistics(ctx, year, month)
				if err != nil {
					return err
				}
				renderStats(cmd.OutOrStdout(), stats, ledger.Location())
				return nil
			})
		},
	}
}

func renderStats(out io.Writer, s core.MonthStatistics, loc *time.Location) {
	fmt.Fprintf(out, "%s %d\n\n", s.Month, s.Year)

	summary := tablewriter.NewWriter(out)
	summary.SetHeader([]string{"Start", "End", "Difference", "%", "Spent", "Income"})
	pct := "n/a"
	if p, ok := s.Percentage(); ok {
		pct = core.FormatAmount(p)
	}
	summary.Append([]string{
		core.FormatAmount(s.StartBalance),
		core.FormatAmount(s.EndBalance),
		core.FormatAmount(s.Difference()),
		pct,
		core.FormatAmount(s.TotalSpent),
		core.FormatAmount(s.TotalIncome),
	})
	summary.Render()

	if len(s.Totals) > 0 {
		fmt.Fprintln(out)
		totals := tablewriter.NewWriter(out)
		totals.SetHeader([]string{"Category", "Spent"})
		for _, t := range s.Totals {
			totals.Append([]string{t.Name, core.FormatAmount(t.Amount)})
		}
		totals.Render()
	}

	if len(s.Biggest) > 0 {
		fmt.Fprintln(out)
		biggest := tablewriter.NewWriter(out)
		biggest.SetHeader([]string{"#", "Amount", "Category", "Description", "Time"})
		for i, e := range s.Biggest {
			biggest.Append([]string{
				strconv.Itoa(i + 1),
				core.FormatAmount(e.Amount),
				e.Category,
				e.DescriptionText(),
				e.Time.In(loc).Format("2006-01-02 15:04"),
			})
		}
		biggest.Render()
	}
}

func newCategoriesCommand(ctl *Ctl) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories and their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctl.withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				cats, err := ledger.Categories(ctx)
				if err != nil {
					return err
				}
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"#", "Name", "Aliases"})
				for i, c := range cats {
					table.Append([]string{strconv.Itoa(i + 1), c.Name, strings.Join(c.Aliases, ", ")})
				}
				table.Render()
				return nil
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name> [aliases...]",
			Short: "Add a category",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctl.withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
					c, err := ledger.AddCategory(ctx, args[0], args[1:]...)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added category %q\n", c.Name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rename <old> <new>",
			Short: "Rename a category; its expenses follow",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctl.withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
					c, err := ledger.RenameCategory(ctx, args[0], args[1])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Renamed category %q to %q\n", args[0], c.Name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a category; its expenses move to \"other\"",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctl.withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
					moved, err := ledger.DeleteCategory(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %q, %d expenses moved to %q\n",
						args[0], moved, core.OtherCategory)
					return nil
				})
			},
		},
	)
	return cmd
}

func newSampleCommand(ctl *Ctl) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Record a balance sample now",
		Long:  "Record the current balance in the history. Month statistics prefer samples taken within two guard offsets of a month boundary and otherwise use the next later sample.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctl.withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				sample, err := ledger.SampleBalance(ctx, ledger.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sampled %s at %s\n",
					core.FormatAmount(sample.Amount), sample.Time.In(ledger.Location()).Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
}

func newMigrateCommand(ctl *Ctl) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctl.DBPath == "" {
				return fmt.Errorf("migrate needs the sqlite backend (SQLITE_DB_PATH)")
			}
			version, err := storage.RunMigrations(ctl.DBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}
}
