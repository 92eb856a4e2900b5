package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"abo/internal/logger"
	"abo/internal/refcode"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var refcodeCmd = &cobra.Command{
	Use:   "refcode",
	Short: "Generate, check and find contract reference codes",
	Long: `Reference codes have 6 random characters followed by 2 checksum
characters. The letters O and I and the digit 0 are never used.`,
}

var refcodeGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate reference codes not used by any contract",
	Example: `  abo refcode generate
  abo refcode generate --count 10 --offline`,
	Args: cobra.NoArgs,
	RunE: runRefcodeGenerate,
}

var refcodeCheckCmd = &cobra.Command{
	Use:   "check [code...]",
	Short: "Check the checksum of reference codes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRefcodeCheck,
}

var refcodeScanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Find reference codes in a payment reference",
	Long: `List the reference code candidates in a text. With --lookup, the first
valid candidate that belongs to a contract is resolved.`,
	Example: `  abo refcode scan "Abo ABCDEFNB Rechnung 3"
  abo refcode scan --lookup "SVWZ+ABCDEFNB EREF+NOTPROVIDED"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRefcodeScan,
}

func init() {
	rootCmd.AddCommand(refcodeCmd)
	refcodeCmd.AddCommand(refcodeGenerateCmd)
	refcodeCmd.AddCommand(refcodeCheckCmd)
	refcodeCmd.AddCommand(refcodeScanCmd)

	refcodeGenerateCmd.Flags().Int("count", 1, "Number of codes to generate")
	refcodeGenerateCmd.Flags().Bool("offline", false, "Don't check the database for codes in use")
	refcodeScanCmd.Flags().Bool("lookup", false, "Resolve the code against the database")
}

func runRefcodeGenerate(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	offline, _ := cmd.Flags().GetBool("offline")
	if count < 1 {
		return fmt.Errorf("count must be positive")
	}

	generate := func(ctx context.Context, exists refcode.Oracle) error {
		seen := make(map[string]bool, count)
		oracle := func(ctx context.Context, code string) (bool, error) {
			if seen[code] {
				return true, nil
			}
			return exists(ctx, code)
		}
		for i := 0; i < count; i++ {
			code, err := refcode.Default.Generate(ctx, oracle)
			if err != nil {
				return fmt.Errorf("failed to generate reference code: %w", err)
			}
			seen[code] = true
			fmt.Println(code)
		}
		return nil
	}

	if offline {
		log := logger.WithComponent("refcode")
		ctx, cancel := commandContext(commandTimeout(cmd), log)
		defer cancel()
		return generate(ctx, func(context.Context, string) (bool, error) { return false, nil })
	}

	return runWithApp(cmd, "refcode", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		return generate(ctx, a.store.ReferenceExists)
	})
}

func runRefcodeCheck(cmd *cobra.Command, args []string) error {
	invalid := 0
	for _, arg := range args {
		code := strings.ToUpper(strings.TrimSpace(arg))
		if refcode.Validate(code) {
			fmt.Printf("%s - ✅\n", code)
			continue
		}
		invalid++
		fmt.Printf("%s - ❌\n", code)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d codes invalid", invalid, len(args))
	}
	return nil
}

func runRefcodeScan(cmd *cobra.Command, args []string) error {
	lookup, _ := cmd.Flags().GetBool("lookup")
	text := strings.Join(args, " ")

	if !lookup {
		candidates := refcode.Default.Candidates(text)
		if len(candidates) == 0 {
			fmt.Println("Keine Kandidaten gefunden.")
			return nil
		}
		for _, c := range candidates {
			fmt.Printf("%s - %s\n", c, validityEmoji(refcode.Validate(c)))
		}
		return nil
	}

	return runWithApp(cmd, "refcode", commandTimeout(cmd), func(ctx context.Context, a *app, log zerolog.Logger) error {
		contract, code, err := refcode.Default.Scan(ctx, text, a.store.FindContractByReference)
		if errors.Is(err, refcode.ErrNoMatch) {
			fmt.Println("Kein Vertrag gefunden.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s - %s (%s)\n", code, customerName(contract), subscriptionName(contract))
		return nil
	})
}

func validityEmoji(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
