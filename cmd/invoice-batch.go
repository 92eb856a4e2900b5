package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"abo/internal/billing"
	"abo/internal/contract"
	"abo/internal/pricing"
	"abo/pkg/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var invoiceBatchCmd = &cobra.Command{
	Use:   "invoice-batch",
	Short: "Create the next invoice for every running contract",
	Long: `Create the next invoice for every contract running on the issue date.

Contracts are invoiced in parallel; invoices of the same contract are never
created concurrently. Contracts without a delivered issue in their accounting
period are skipped. Use --all to include contracts that have ended but may
still have unbilled issues.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)`,
	Example: `  # Invoice all running contracts up to today
  abo invoice-batch

  # Invoice the first quarter with 8 workers
  abo invoice-batch --date 2024-03-31 --workers 8

  # Dry run to see what would be invoiced
  abo invoice-batch --dry-run --verbose`,
	Args: cobra.NoArgs,
	RunE: runInvoiceBatch,
}

func init() {
	rootCmd.AddCommand(invoiceBatchCmd)

	addInvoiceFlags(invoiceBatchCmd)
	invoiceBatchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: BATCH_WORKERS)")
	invoiceBatchCmd.Flags().Bool("all", false, "Include contracts that are no longer running")
	invoiceBatchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
}

func runInvoiceBatch(cmd *cobra.Command, args []string) error {
	req, err := invoiceRequest(cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")
	all, _ := cmd.Flags().GetBool("all")
	verbose, _ := cmd.Flags().GetBool("verbose")

	return runWithApp(cmd, "invoice-batch", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		if workers <= 0 {
			workers = a.cfg.BatchWorkers
		}
		issueDate := req.IssueDate
		if issueDate.IsZero() {
			issueDate = models.Today()
		}

		log.Info().
			Str("issue_date", issueDate.Format(models.DateLayout)).
			Int("workers", workers).
			Bool("all", all).
			Bool("dry_run", req.DryRun).
			Msg("Starting batch invoicing")

		fmt.Println(strings.Repeat("=", 80))
		fmt.Println("                         RECHNUNGSLAUF")
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Rechnungsdatum: %s\n", issueDate.Format(models.GermanDateLayout))
		if req.DryRun {
			fmt.Printf("Modus: Dry Run (keine Rechnungen gespeichert)\n")
		}
		fmt.Println()

		contracts, err := a.store.ListContracts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list contracts: %w", err)
		}
		selected := selectContracts(contracts, issueDate, all)

		if len(selected) == 0 {
			fmt.Println("Keine laufenden Verträge gefunden.")
			return nil
		}

		fmt.Printf("Verarbeite %d Verträge mit %d parallelen Workern...\n", len(selected), workers)
		fmt.Println()

		counts := make(map[string]int)
		total := decimal.Zero
		for p := range a.billing.InvoiceAll(ctx, selected, req, workers) {
			counts[p.Status]++
			fmt.Printf("[%d/%d] %s - %s", p.Done, p.Total, p.ContractRef, getStatusEmoji(p.Status))

			switch {
			case p.Err != nil:
				fmt.Printf(" (%s)", p.Err.Error())
			case p.Result != nil:
				inv := p.Result.Invoice
				total = total.Add(inv.Value())
				fmt.Printf(" (Nr. %d, €%s)", inv.Number, inv.Value().StringFixed(pricing.CentPlaces))
				if verbose {
					fmt.Printf(" %s - %s", inv.AccountingStart.Format(models.GermanDateLayout), inv.AccountingEnd.Format(models.GermanDateLayout))
					for _, w := range p.Result.Warnings {
						fmt.Printf("\n    ⚠️  %s", w)
					}
				}
			}
			fmt.Println()
		}

		fmt.Println()
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("                 ERGEBNIS")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Printf("Erfolgreich: %d\n", counts[billing.StatusSuccess])
		if n := counts[billing.StatusWarning]; n > 0 {
			fmt.Printf("Mit Warnungen: %d\n", n)
		}
		if n := counts[billing.StatusSkipped]; n > 0 {
			fmt.Printf("Übersprungen: %d\n", n)
		}
		if n := counts[billing.StatusError]; n > 0 {
			fmt.Printf("Fehler: %d\n", n)
		}
		fmt.Printf("Summe: €%s\n", total.StringFixed(pricing.CentPlaces))
		fmt.Println(strings.Repeat("=", 80))

		log.Info().
			Int("total", len(selected)).
			Int("success", counts[billing.StatusSuccess]).
			Int("warnings", counts[billing.StatusWarning]).
			Int("skipped", counts[billing.StatusSkipped]).
			Int("errors", counts[billing.StatusError]).
			Str("value", total.StringFixed(pricing.CentPlaces)).
			Msg("Batch invoicing completed")

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch invoicing interrupted: %w", err)
		}
		if counts[billing.StatusError] > 0 {
			return fmt.Errorf("%d contracts failed", counts[billing.StatusError])
		}
		return nil
	})
}

// selectContracts keeps the valid contracts running on date, or all valid
// contracts that have started if all is set.
func selectContracts(contracts []*models.Contract, date time.Time, all bool) []*models.Contract {
	var out []*models.Contract
	for _, c := range contracts {
		switch contract.StateOf(c, date) {
		case contract.StateRunning:
			out = append(out, c)
		case contract.StateEnded:
			if all {
				out = append(out, c)
			}
		}
	}
	return out
}
