package demoapp

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Import errors, worded the way the upload endpoint reports them.
var (
	ErrTooFewLines    = errors.New("CSV must have at least a header and one data row")
	ErrMissingColumns = errors.New("CSV must have Product, Quantity, and Price columns")
	ErrNoValidRows    = errors.New("No valid data rows found in CSV")
)

// ExportFilename is the name the download is saved under.
const ExportFilename = "data.csv"

// ExportCSV renders rows as Product,Quantity,Price lines joined by "\n",
// without a trailing newline.
func ExportCSV(rows []Row) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, "Product,Quantity,Price")
	for _, r := range rows {
		lines = append(lines, r.Product+","+strconv.Itoa(r.Quantity)+","+r.Price)
	}
	return strings.Join(lines, "\n")
}

// ParseImport reads an uploaded CSV. The header is matched case-insensitively
// in any column order; rows with fewer than three values or unparsable numbers
// are skipped. Fields are split on plain commas.
func ParseImport(content string) ([]Row, error) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) < 2 {
		return nil, ErrTooFewLines
	}

	header := splitTrim(lines[0])
	for i := range header {
		header[i] = strings.ToLower(header[i])
	}
	productIdx := indexOf(header, "product")
	quantityIdx := indexOf(header, "quantity")
	priceIdx := indexOf(header, "price")
	if productIdx < 0 || quantityIdx < 0 || priceIdx < 0 {
		return nil, ErrMissingColumns
	}

	var rows []Row
	for _, line := range lines[1:] {
		values := splitTrim(line)
		if len(values) < 3 {
			continue
		}
		if productIdx >= len(values) || quantityIdx >= len(values) || priceIdx >= len(values) {
			continue
		}

		product := values[productIdx]
		quantity, ok := leadingInt(values[quantityIdx])
		if !ok {
			continue
		}
		price, ok := leadingFloat(values[priceIdx])
		if product == "" || !ok {
			continue
		}

		rows = append(rows, Row{
			Product:  product,
			Quantity: quantity,
			Price:    strconv.FormatFloat(price, 'f', 2, 64),
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoValidRows
	}
	return rows, nil
}

func splitTrim(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

var (
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// leadingInt parses the integer prefix of s ("40", "40abc", "12.5" -> 12).
func leadingInt(s string) (int, bool) {
	m := intPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	return n, err == nil
}

// leadingFloat parses the decimal prefix of s ("2000", "1999.5yen").
func leadingFloat(s string) (float64, bool) {
	m := floatPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}
