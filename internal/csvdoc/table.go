package csvdoc

import (
	"encoding/csv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCSV stands in for the export when neither a download nor the
// on-screen table produced data.
const DefaultCSV = "Product,Quantity,Price\nTestProduct1,10,1000\nTestProduct2,20,2000"

// ScrapeHeader is the schema assumed for scraped tables. The UI columns are
// ID, Product, Quantity, Price and updated-at; only the middle three are kept.
var ScrapeHeader = []string{"Product", "Quantity", "Price"}

// NormalizePrice strips currency symbols, thousands separators and spaces
// from a displayed price ("¥120,000" -> "120000").
func NormalizePrice(s string) string {
	return strings.NewReplacer("¥", "", "￥", "", ",", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
}

// FromTable formats scraped table rows as CSV text with ScrapeHeader. Rows
// with fewer than four cells are skipped. It reports false when no row
// qualified.
func FromTable(rows [][]string) (string, bool) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write(ScrapeHeader)

	n := 0
	for _, cells := range rows {
		if len(cells) < 4 {
			continue
		}
		w.Write([]string{cells[1], cells[2], NormalizePrice(cells[3])})
		n++
	}
	w.Flush()

	if n == 0 {
		return "", false
	}
	return strings.TrimSuffix(sb.String(), "\n"), true
}

// Diff returns a unified diff between two CSV texts, or "" if they are equal.
func Diff(before, after string) string {
	if before == after {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(ensureNewline(before)),
		B:        difflib.SplitLines(ensureNewline(after)),
		FromFile: "downloaded",
		ToFile:   "edited",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
