package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"abo/internal/dataset"
	"abo/pkg/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [file.json]",
	Short: "Load magazines, customers and contracts from a JSON file",
	Long: `Load master data from a JSON document into the database.

The document holds the lists "magazines", "subscriptions", "customers" and
"contracts". Records reference each other by their "key" field; contracts
reference customers, subscriptions, addresses and bank accounts this way.

Contracts without a "refid" get a newly generated reference code. Given
codes must carry a valid checksum and must not be in use.`,
	Example: `  # Load a dataset into the default database
  abo load stammdaten.json

  # Load into a separate database file
  abo load stammdaten.json --db test.db`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	path := args[0]

	return runWithApp(cmd, "load", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		defer f.Close()

		doc, err := dataset.Decode(f)
		if err != nil {
			return err
		}

		log.Info().
			Str("file", path).
			Int("contracts", len(doc.Contracts)).
			Msg("Loading dataset")

		summary, err := dataset.Load(ctx, doc, a.store, a.creator)
		if summary != nil {
			printLoadSummary(summary)
		}
		return err
	})
}

func printLoadSummary(s *dataset.Summary) {
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 ERGEBNIS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Zeitschriften: %d (%d Ausgaben)\n", s.Magazines, s.Issues)
	fmt.Printf("Abonnements: %d\n", s.Subscriptions)
	fmt.Printf("Kunden: %d\n", s.Customers)
	fmt.Printf("Verträge: %d\n", len(s.Contracts))
	for _, c := range s.Contracts {
		name := ""
		if c.Customer != nil {
			name = c.Customer.Name
		}
		fmt.Printf("  %s  %s  ab %s\n", c.RefID, name, c.StartDate.Format(models.GermanDateLayout))
	}
}
