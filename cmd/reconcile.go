package cmd

import (
	"context"
	"fmt"
	"strings"

	"abo/internal/export"
	"abo/internal/pricing"
	"abo/internal/reconciliation"
	"abo/pkg/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [statement]",
	Short: "Book incoming payments from a bank statement",
	Long: `Read a bank statement and book every incoming payment on the contract
whose reference code appears in the payment reference.

Sources:
  csv    - semicolon separated file: date;value;description;reference;invoice number
  xlsx   - Excel workbook, sheet "Bank" (or the first sheet)
  sheets - "Bank" sheet of the Google Sheet in GOOGLE_SHEET_URL (no file argument)

Dates and amounts may use German formatting (31.01.2024, 1.234,56).
Payments without a known reference code are listed and not booked.`,
	Example: `  # Book a CSV statement
  abo reconcile kontoauszug.csv

  # Book an Excel export, without saving anything
  abo reconcile kontoauszug.xlsx --source xlsx --dry-run

  # Book the Bank sheet of the configured Google Sheet
  abo reconcile --source sheets`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().String("source", "", "Statement importer: csv, xlsx or sheets (default: from file extension)")
	reconcileCmd.Flags().Bool("dry-run", false, "Match payments but don't book them")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	source, err := statementSource(source, path)
	if err != nil {
		return err
	}

	return runWithApp(cmd, "reconcile", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		log.Info().
			Str("source", source).
			Str("file", path).
			Bool("dry_run", dryRun).
			Msg("Starting reconciliation")

		importer, err := a.registry.Importer(ctx, source, path)
		if err != nil {
			return fmt.Errorf("failed to create %s importer: %w", source, err)
		}

		fmt.Println(strings.Repeat("=", 80))
		fmt.Println("                         ZAHLUNGSABGLEICH")
		fmt.Println(strings.Repeat("=", 80))
		if path != "" {
			fmt.Printf("Datei: %s\n", path)
		}
		fmt.Printf("Quelle: %s\n", source)
		if dryRun {
			fmt.Printf("Modus: Dry Run (keine Buchungen)\n")
		}
		fmt.Println()

		result, err := a.matcher.Reconcile(ctx, importer, dryRun)
		if err != nil {
			return fmt.Errorf("reconciliation failed: %w", err)
		}

		printReconciliation(result)

		log.Info().
			Int("matched", len(result.Matched)).
			Int("unmatched", len(result.Unmatched)).
			Int("warnings", len(result.Warnings)).
			Msg("Reconciliation completed")
		return nil
	})
}

// statementSource picks the importer id, falling back to the file extension.
func statementSource(source, path string) (string, error) {
	if source == "" {
		switch {
		case path == "":
			source = "sheets"
		case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
			source = "xlsx"
		default:
			source = "csv"
		}
	}
	if source != "sheets" && path == "" {
		return "", fmt.Errorf("the %s source needs a statement file", source)
	}
	return source, nil
}

func printReconciliation(result *reconciliation.Result) {
	for _, m := range result.Matched {
		fmt.Printf("%s  %10s  %s", m.Record.BookingDate.Format(models.GermanDateLayout),
			export.GermanAmount(m.Record.Value), m.Code)
		if m.Invoice != nil {
			fmt.Printf(" (Rechnung %d)", m.Invoice.Number)
		}
		fmt.Println(" ✅")
	}
	for _, u := range result.Unmatched {
		fmt.Printf("%s  %10s  %s ❌ (%s)\n", u.Record.BookingDate.Format(models.GermanDateLayout),
			export.GermanAmount(u.Record.Value), shorten(u.Record.Description, 40), u.Reason)
	}
	for _, w := range result.Warnings {
		fmt.Printf("⚠️  %s\n", w)
	}

	booked := result.Total()
	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 ERGEBNIS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Zugeordnet: %d (€%s)\n", len(result.Matched), booked.StringFixed(pricing.CentPlaces))
	if len(result.Unmatched) > 0 {
		fmt.Printf("Nicht zugeordnet: %d\n", len(result.Unmatched))
	}
	if len(result.Warnings) > 0 {
		fmt.Printf("Mit Warnungen: %d\n", len(result.Warnings))
	}
	fmt.Println(strings.Repeat("=", 80))
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
