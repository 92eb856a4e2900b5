package reconciliation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// German and ISO date layouts accepted in statements.
var dateFormats = []string{
	"02.01.2006", // DD.MM.YYYY
	"2.1.2006",   // D.M.YYYY
	"02.01.06",   // DD.MM.YY
	"2.1.06",     // D.M.YY
	"2006-01-02", // ISO format (fallback)
}

// parseGermanDate parses German date format (DD.MM.YYYY)
func parseGermanDate(dateStr string) (time.Time, error) {
	cleaned := strings.TrimSpace(dateStr)
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	for _, format := range dateFormats {
		if date, err := time.Parse(format, cleaned); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// parseGermanAmount parses German amount format (comma as decimal, negative with minus)
func parseGermanAmount(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(amountStr)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	isNegative := strings.HasPrefix(cleaned, "-")
	if isNegative {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "-"))
	}

	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "\u00a0", "")
	cleaned = strings.ReplaceAll(cleaned, "€", "")
	cleaned = strings.ReplaceAll(cleaned, "EUR", "")
	cleaned = strings.TrimPrefix(cleaned, "+")

	// German format: thousands separator = dot, decimal separator = comma.
	// "1.234,56" = 1234.56, "1234,56" = 1234.56, "1.234" = 1234.
	switch {
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case strings.Count(cleaned, ".") > 1 || isThousandsGroup(cleaned):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", amountStr, cleaned)
	}

	if isNegative {
		amount = amount.Neg()
	}
	return amount, nil
}

// isThousandsGroup reports whether a single dot is followed by exactly
// three digits, as in "1.234".
func isThousandsGroup(s string) bool {
	i := strings.IndexByte(s, '.')
	return i > 0 && len(s)-i-1 == 3
}

// getString safely extracts a string value from a row slice
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
