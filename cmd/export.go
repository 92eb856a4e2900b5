package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"abo/internal/export"
	"abo/pkg/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [category] [id]",
	Short: "Export invoices or addresses with a formatter plugin",
	Long: `Export data with one of the enabled formatter plugins.

Categories:
  invoice - all invoices (csv, xlsx, sheets)
  address - billing addresses of all contracts (csv)

Plugins of the category "bank" are statement importers; use "abo reconcile".
The enabled plugins can be restricted with a manifest (ABO_PLUGIN_MANIFEST).`,
	Example: `  # List the enabled plugins
  abo export --list

  # Invoices of one contract as CSV on stdout
  abo export invoice csv --ref ABCDEFNB

  # All invoices as Excel workbook
  abo export invoice xlsx -o rechnungen.xlsx

  # Append all invoices to the Debitoren sheet
  abo export invoice sheets

  # Addresses of the contracts running today
  abo export address csv --running -o adressen.csv`,
	Args: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().String("ref", "", "Export only the contract with this reference code")
	exportCmd.Flags().Bool("running", false, "Export only contracts running today")
	exportCmd.Flags().Bool("list", false, "List the enabled plugins")
}

func runExport(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	outputPath, _ := cmd.Flags().GetString("output")
	refID, _ := cmd.Flags().GetString("ref")
	running, _ := cmd.Flags().GetBool("running")
	refID = strings.ToUpper(strings.TrimSpace(refID))

	return runWithApp(cmd, "export", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		if list {
			for _, key := range a.registry.List() {
				fmt.Println(key)
			}
			return nil
		}

		category, id := args[0], args[1]
		contracts, err := exportContracts(ctx, a, refID, running)
		if err != nil {
			return err
		}

		write, total, err := exportWriter(ctx, a, category, id, contracts)
		if err != nil {
			return err
		}

		log.Info().
			Str("plugin", category+"/"+id).
			Int("contracts", len(contracts)).
			Int("items", total).
			Str("output", outputPath).
			Msg("Starting export")

		var out io.Writer = os.Stdout
		if outputPath != "" {
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		progress := make(chan export.Progress)
		printed := make(chan struct{})
		go func() {
			defer close(printed)
			for p := range progress {
				fmt.Fprintf(os.Stderr, "\rExportiert: %d/%d", p.Done, p.Total)
			}
			if total > 0 {
				fmt.Fprintln(os.Stderr)
			}
		}()

		err = write(out, progress)
		close(progress)
		<-printed
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		log.Info().Str("plugin", category+"/"+id).Int("items", total).Msg("Export completed")
		return nil
	})
}

// exportWriter resolves the plugin and binds it to the data of its
// category.
func exportWriter(ctx context.Context, a *app, category, id string, contracts []*models.Contract) (func(io.Writer, chan<- export.Progress) error, int, error) {
	switch category {
	case export.CategoryInvoice:
		formatter, err := a.registry.InvoiceFormatter(id)
		if err != nil {
			return nil, 0, err
		}
		invoices, err := collectInvoices(ctx, a, contracts)
		if err != nil {
			return nil, 0, err
		}
		return func(w io.Writer, p chan<- export.Progress) error {
			return formatter.Write(ctx, invoices, w, p)
		}, len(invoices), nil

	case export.CategoryAddress:
		formatter, err := a.registry.ContractFormatter(id)
		if err != nil {
			return nil, 0, err
		}
		return func(w io.Writer, p chan<- export.Progress) error {
			return formatter.Write(ctx, contracts, w, p)
		}, len(contracts), nil

	case export.CategoryBank:
		return nil, 0, fmt.Errorf("bank plugins import statements, use 'abo reconcile --source %s'", id)

	default:
		return nil, 0, fmt.Errorf("unknown category %q (use invoice or address)", category)
	}
}

func exportContracts(ctx context.Context, a *app, refID string, running bool) ([]*models.Contract, error) {
	if refID != "" {
		c, err := a.store.FindContractByReference(ctx, refID)
		if err != nil {
			return nil, fmt.Errorf("failed to load contract %s: %w", refID, err)
		}
		return []*models.Contract{c}, nil
	}

	contracts, err := a.store.ListContracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	if running {
		contracts = selectContracts(contracts, models.Today(), false)
	}
	return contracts, nil
}

func collectInvoices(ctx context.Context, a *app, contracts []*models.Contract) ([]*models.Invoice, error) {
	var invoices []*models.Invoice
	for _, c := range contracts {
		list, err := a.store.InvoicesForContract(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load invoices of %s: %w", c.RefID, err)
		}
		for _, inv := range list {
			inv.Contract = c
		}
		invoices = append(invoices, list...)
	}
	return invoices, nil
}
