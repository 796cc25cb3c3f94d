package roundtrip

import (
	"context"
	"strings"
)

// VerifyReason explains a VerifyResult.
type VerifyReason string

const (
	ReasonMatched      VerifyReason = "matched"
	ReasonValueDiffers VerifyReason = "value differs"
	ReasonRowNotFound  VerifyReason = "row not found"
	ReasonScrapeFailed VerifyReason = "scrape failed"
)

// VerifyResult is the outcome of checking the reloaded table.
type VerifyResult struct {
	Matched bool         `json:"matched"`
	Reason  VerifyReason `json:"reason"`
	Actual  string       `json:"actual,omitempty"`
}

// CheckRows looks for key among product,quantity,price records and compares
// the quantity of the first match with expected.
func CheckRows(rows [][]string, key, expected string) VerifyResult {
	for _, r := range rows {
		if len(r) < 2 || r[0] != key {
			continue
		}
		actual := strings.TrimSpace(r[1])
		if actual == expected {
			return VerifyResult{Matched: true, Reason: ReasonMatched, Actual: actual}
		}
		return VerifyResult{Reason: ReasonValueDiffers, Actual: actual}
	}
	return VerifyResult{Reason: ReasonRowNotFound}
}

// VerifyUpdate reloads the page and checks that the mutated row shows the
// new quantity.
func VerifyUpdate(ctx context.Context, page Page, cfg Config, rep *Reporter) VerifyResult {
	rep.Info("checking the updated data")

	if err := page.Reload(ctx); err != nil {
		rep.Error("data check failed: %v", err)
		return VerifyResult{Reason: ReasonScrapeFailed}
	}

	rows, err := WaitForTable(ctx, page, cfg)
	if err != nil {
		rep.Error("data check failed: %v", err)
		return VerifyResult{Reason: ReasonScrapeFailed}
	}
	records := tableRecords(rows)

	m := cfg.Mutation
	res := CheckRows(records, m.RowKey, m.Value)
	switch res.Reason {
	case ReasonMatched:
		rep.Success("data update confirmed")
		rep.Info("%s %s = %s", m.RowKey, m.Column, res.Actual)
	case ReasonValueDiffers:
		rep.Warning("value differs from expected: expected=%s, actual=%s", m.Value, res.Actual)
	case ReasonRowNotFound:
		rep.Error("product %q not found in the table", m.RowKey)
	}
	return res
}

// WaitForTable polls the table until it shows at least one data row. The
// app fills the table after the page has loaded.
func WaitForTable(ctx context.Context, page Page, cfg Config) ([][]string, error) {
	var rows [][]string
	err := poll(ctx, cfg.StepTimeout, func() (bool, error) {
		var err error
		rows, err = page.TableRows(ctx, cfg.Selectors.TableRows)
		if err != nil {
			return false, err
		}
		return len(tableRecords(rows)) > 0, nil
	})
	return rows, err
}

// tableRecords keeps the product, quantity and price cells of rows that have
// at least four cells.
func tableRecords(rows [][]string) [][]string {
	var out [][]string
	for _, cells := range rows {
		if len(cells) < 4 {
			continue
		}
		out = append(out, cells[1:4])
	}
	return out
}
