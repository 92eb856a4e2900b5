package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"abo/internal/contract"
	"abo/internal/pricing"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Inspect contracts",
}

var contractStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List all contracts with their state on a date",
	Long: `List all contracts with their state on a date:

  draft   - required data is missing
  valid   - complete, but not started yet
  running - delivers issues on the date
  ended   - end date passed or all issues delivered`,
	Example: `  # State today
  abo contract status

  # State at the end of 2024
  abo contract status --date 2024-12-31`,
	Args: cobra.NoArgs,
	RunE: runContractStatus,
}

var contractShowCmd = &cobra.Command{
	Use:   "show [refcode]",
	Short: "Show a contract with its invoices and balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runContractShow,
}

func init() {
	rootCmd.AddCommand(contractCmd)
	contractCmd.AddCommand(contractStatusCmd)
	contractCmd.AddCommand(contractShowCmd)

	contractStatusCmd.Flags().String("date", "", "Reference date (format: YYYY-MM-DD, default: today)")
}

func runContractStatus(cmd *cobra.Command, args []string) error {
	date, err := dateFlag(cmd, "date")
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = models.Today()
	}

	return runWithApp(cmd, "contract", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		contracts, err := a.store.ListContracts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list contracts: %w", err)
		}

		counts := make(map[contract.State]int)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "REFERENZ\tKUNDE\tABO\tBEGINN\tENDE\tBETRAG\tSTATUS")
		for _, c := range contracts {
			state := contract.StateOf(c, date)
			counts[state]++
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				c.RefID, customerName(c), subscriptionName(c),
				c.StartDate.Format(models.GermanDateLayout), endDate(c),
				c.Value.StringFixed(pricing.CentPlaces), state)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("Stichtag: %s  laufend: %d  gültig: %d  beendet: %d  unvollständig: %d\n",
			date.Format(models.GermanDateLayout),
			counts[contract.StateRunning], counts[contract.StateValid],
			counts[contract.StateEnded], counts[contract.StateDraft])

		log.Debug().Int("contracts", len(contracts)).Msg("Contract status listed")
		return nil
	})
}

func runContractShow(cmd *cobra.Command, args []string) error {
	refID := strings.ToUpper(strings.TrimSpace(args[0]))

	return runWithApp(cmd, "contract", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		c, err := a.store.FindContractByReference(ctx, refID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return fmt.Errorf("no contract with reference code %s", refID)
			}
			return fmt.Errorf("failed to load contract: %w", err)
		}
		invoices, err := a.store.InvoicesForContract(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to load invoices: %w", err)
		}
		entries, err := a.store.EntriesForContract(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to load entries: %w", err)
		}

		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Vertrag %s\n", c.RefID)
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Kunde: %s\n", customerName(c))
		fmt.Printf("Abo: %s (%s)\n", subscriptionName(c), magazineName(c))
		fmt.Printf("Laufzeit: %s - %s\n", c.StartDate.Format(models.GermanDateLayout), endDate(c))
		fmt.Printf("Betrag: €%s  Zahlungsart: %s\n", c.Value.StringFixed(pricing.CentPlaces), c.PaymentType)
		fmt.Printf("Status: %s\n", contract.StateOf(c, models.Today()))
		if err := contract.Validate(c); err != nil {
			fmt.Printf("Mängel: %v\n", err)
		}
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NR\tDATUM\tZEITRAUM\tFÄLLIG\tBETRAG\tOFFEN")
		for _, inv := range invoices {
			fmt.Fprintf(w, "%d\t%s\t%s - %s\t%s\t%s\t%s\n",
				inv.Number, inv.IssueDate.Format(models.GermanDateLayout),
				inv.AccountingStart.Format(models.GermanDateLayout), inv.AccountingEnd.Format(models.GermanDateLayout),
				inv.MaturityDate.Format(models.GermanDateLayout),
				inv.Value().StringFixed(pricing.CentPlaces), inv.ValueLeft().StringFixed(pricing.CentPlaces))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		balance := decimal.Zero
		for _, e := range entries {
			balance = balance.Add(e.Value)
		}
		fmt.Println()
		fmt.Printf("Buchungen: %d  Saldo: €%s\n", len(entries), balance.StringFixed(pricing.CentPlaces))

		log.Debug().Str("ref_id", c.RefID).Int("invoices", len(invoices)).Msg("Contract shown")
		return nil
	})
}

func customerName(c *models.Contract) string {
	if c.Customer == nil {
		return "-"
	}
	return c.Customer.Name
}

func subscriptionName(c *models.Contract) string {
	if c.Subscription == nil {
		return "-"
	}
	return c.Subscription.Name
}

func magazineName(c *models.Contract) string {
	if m := c.Magazine(); m != nil {
		return m.Name
	}
	return "-"
}

func endDate(c *models.Contract) string {
	if c.EndDate == nil {
		return "offen"
	}
	return c.EndDate.Format(models.GermanDateLayout)
}
