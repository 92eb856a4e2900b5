package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"abo/internal/billing"
	"abo/internal/invoice"
	"abo/internal/pricing"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice [refcode]",
	Short: "Create the next invoice of a contract",
	Long: `Create the next invoice of a contract identified by its reference code.

The accounting period starts the day after the previous invoice ended (or on
the contract start) and ends on the issue date unless --start and --end are
given. The invoice holds one entry per delivered issue, priced by the
contract value. Without any issue in the period no invoice is created.

The created invoice is printed as JSON.`,
	Example: `  # Invoice everything delivered up to today
  abo invoice ABCDEFNB

  # Invoice a fixed period, due on a fixed date
  abo invoice ABCDEFNB --start 2024-01-01 --end 2024-12-31 --maturity-date 2025-01-31

  # Compute the invoice without saving it
  abo invoice ABCDEFNB --dry-run -o invoice.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoice,
}

// InvoiceOutput represents the JSON output structure for invoice creation
type InvoiceOutput struct {
	Invoice  InvoiceData     `json:"invoice"`
	Warnings []string        `json:"warnings,omitempty"`
	Metadata InvoiceMetadata `json:"metadata"`
}

// InvoiceData represents the created invoice
type InvoiceData struct {
	ID              string      `json:"id"`
	ContractRef     string      `json:"contract_ref"`
	Customer        string      `json:"customer,omitempty"`
	Number          int         `json:"number"`
	AccountingStart string      `json:"accounting_start"`
	AccountingEnd   string      `json:"accounting_end"`
	IssueDate       string      `json:"issue_date"`
	MaturityDate    string      `json:"maturity_date"`
	Value           string      `json:"value"`
	ValueLeft       string      `json:"value_left"`
	Entries         []EntryData `json:"entries"`
}

// EntryData is one bookkeeping entry of an invoice
type EntryData struct {
	Date        string `json:"date"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// InvoiceMetadata contains information about the run
type InvoiceMetadata struct {
	DryRun             bool          `json:"dry_run"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(invoiceCmd)

	invoiceCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	addInvoiceFlags(invoiceCmd)
}

// addInvoiceFlags registers the flags shared by invoice and invoice-batch.
func addInvoiceFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "Issue date (format: YYYY-MM-DD, default: today)")
	cmd.Flags().String("maturity-date", "", "Maturity date (format: YYYY-MM-DD)")
	cmd.Flags().Int("maturity-days", -1, "Days between issue and maturity date (default: ABO_MATURITY_DAYS)")
	cmd.Flags().String("start", "", "Accounting period start (format: YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Accounting period end (format: YYYY-MM-DD, default: issue date)")
	cmd.Flags().Bool("dry-run", false, "Compute invoices but don't save them")
}

// invoiceRequest builds a billing request from the invoice flags.
func invoiceRequest(cmd *cobra.Command) (billing.Request, error) {
	var req billing.Request
	var err error

	if req.IssueDate, err = dateFlag(cmd, "date"); err != nil {
		return req, err
	}
	if req.MaturityDate, err = dateFlag(cmd, "maturity-date"); err != nil {
		return req, err
	}
	if req.AccountingStart, err = dateFlag(cmd, "start"); err != nil {
		return req, err
	}
	if req.AccountingEnd, err = dateFlag(cmd, "end"); err != nil {
		return req, err
	}
	if days, _ := cmd.Flags().GetInt("maturity-days"); days >= 0 {
		offset := time.Duration(days) * 24 * time.Hour
		req.MaturityOffset = &offset
	}
	req.DryRun, _ = cmd.Flags().GetBool("dry-run")
	return req, nil
}

func runInvoice(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	refID := strings.ToUpper(strings.TrimSpace(args[0]))

	req, err := invoiceRequest(cmd)
	if err != nil {
		return err
	}

	return runWithApp(cmd, "invoice", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		log.Info().
			Str("ref_id", refID).
			Str("output", outputPath).
			Bool("dry_run", req.DryRun).
			Msg("Starting invoice creation")

		contract, err := a.store.FindContractByReference(ctx, refID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return fmt.Errorf("no contract with reference code %s", refID)
			}
			return fmt.Errorf("failed to load contract: %w", err)
		}

		startTime := time.Now()
		result, err := a.billing.Invoice(ctx, contract.ID, req)
		if err != nil {
			return handleInvoiceError(err, log)
		}

		output := InvoiceOutput{
			Invoice:  convertToInvoiceData(result.Invoice, contract),
			Warnings: result.Warnings,
			Metadata: InvoiceMetadata{
				DryRun:             req.DryRun,
				ProcessedAt:        time.Now(),
				ProcessingDuration: time.Since(startTime),
			},
		}

		return outputInvoiceResults(output, outputPath, log)
	})
}

// handleInvoiceError provides user-friendly error messages for invoicing failures
func handleInvoiceError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice creation failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("invoice creation timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("invoice creation was canceled")
	case billing.IsNothingToBill(err):
		return fmt.Errorf("nothing to invoice: no issue was delivered in the accounting period (%w)", err)
	case errors.Is(err, invoice.ErrAmbiguousMaturity):
		return fmt.Errorf("use either --maturity-date or --maturity-days, not both")
	case errors.Is(err, invoice.ErrPeriodOverlap):
		return fmt.Errorf("the accounting period overlaps the previous invoice. Choose a later --start: %w", err)
	case errors.Is(err, invoice.ErrPeriodBeforeContract):
		return fmt.Errorf("the accounting period starts before the contract: %w", err)
	case errors.Is(err, invoice.ErrMissingContract):
		return fmt.Errorf("the contract has no subscription or magazine: %w", err)
	default:
		return fmt.Errorf("invoice creation failed: %w", err)
	}
}

// convertToInvoiceData converts models.Invoice to InvoiceData for JSON output
func convertToInvoiceData(inv *models.Invoice, contract *models.Contract) InvoiceData {
	data := InvoiceData{
		ID:              inv.ID.String(),
		ContractRef:     contract.RefID,
		Number:          inv.Number,
		AccountingStart: inv.AccountingStart.Format(models.DateLayout),
		AccountingEnd:   inv.AccountingEnd.Format(models.DateLayout),
		IssueDate:       inv.IssueDate.Format(models.DateLayout),
		MaturityDate:    inv.MaturityDate.Format(models.DateLayout),
		Value:           inv.Value().StringFixed(pricing.CentPlaces),
		ValueLeft:       inv.ValueLeft().StringFixed(pricing.CentPlaces),
	}
	if contract.Customer != nil {
		data.Customer = contract.Customer.Name
	}
	for _, e := range inv.Entries {
		data.Entries = append(data.Entries, EntryData{
			Date:        e.Date.Format(models.DateLayout),
			Value:       e.Value.StringFixed(pricing.CentPlaces),
			Description: e.Description,
		})
	}
	return data
}

// outputInvoiceResults formats and outputs the invoice as JSON
func outputInvoiceResults(output InvoiceOutput, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal invoice data to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath != "" {
		err = os.WriteFile(outputPath, jsonData, 0644)
		if err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(jsonData)).
			Msg("Invoice data written to file")
	} else {
		_, err = os.Stdout.Write(jsonData)
		if err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Println()
	}

	return nil
}
