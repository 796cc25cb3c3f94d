// Package csvdoc parses small CSV exports and edits single cells in place,
// leaving every other byte of the input as it was.
package csvdoc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Errors
var (
	ErrEmpty          = errors.New("empty CSV document")
	ErrColumnNotFound = errors.New("column not found")
)

const bom = "\ufeff"

// Document is a parsed CSV file. Rows may be ragged. The source text is kept
// so that String changes nothing but the cells Apply rewrote.
type Document struct {
	Header []string
	Rows   [][]string

	bom   bool
	text  string   // input without the byte order mark
	cells [][]span // source range of every cell in Rows
	edits map[int]edit
}

type span struct {
	start, end int
}

type edit struct {
	span
	value string
}

// Mutation sets Column to Value in every row whose first cell equals RowKey.
type Mutation struct {
	RowKey string `json:"rowKey"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (m Mutation) String() string {
	return fmt.Sprintf("%s.%s = %s", m.RowKey, m.Column, m.Value)
}

// EditResult reports what Apply changed.
type EditResult struct {
	Column   int      `json:"column"`   // header index of the edited column, -1 if absent
	Matched  int      `json:"matched"`  // rows rewritten
	Short    int      `json:"short"`    // matching rows too short to hold the column
	Previous []string `json:"previous"` // old values of rewritten cells, in row order
}

// Parse reads text as CSV. Quoted fields may contain commas, quotes and
// newlines. Blank lines hold no row but stay in the source text.
func Parse(text string) (*Document, error) {
	doc := &Document{edits: map[int]edit{}}

	if strings.HasPrefix(text, bom) {
		doc.bom = true
		text = strings.TrimPrefix(text, bom)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}
	doc.text = text
	lines := lineStarts(text)

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing CSV: %w", err)
		}
		if doc.Header == nil {
			doc.Header = record
			continue
		}
		doc.Rows = append(doc.Rows, record)
		doc.cells = append(doc.cells, cellSpans(r, text, lines, len(record), int(r.InputOffset())))
	}

	return doc, nil
}

// lineStarts returns the byte offset of every line of text.
func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// cellSpans locates the n fields of the record r just returned. end is the
// reader offset after the record, which includes its line terminator.
func cellSpans(r *csv.Reader, text string, lines []int, n, end int) []span {
	rest := strings.TrimSuffix(text[:end], "\n")
	rest = strings.TrimSuffix(rest, "\r")
	end = len(rest)

	spans := make([]span, n)
	for i := range spans {
		line, col := r.FieldPos(i)
		spans[i].start = lines[line-1] + col - 1
	}
	for i := range spans {
		if i+1 < n {
			spans[i].end = spans[i+1].start - 1 // the comma
		} else {
			spans[i].end = end
		}
	}
	return spans
}

// ColumnIndex returns the index of the first header cell equal to name, or -1.
func (d *Document) ColumnIndex(name string) int {
	for i, h := range d.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Apply rewrites the matching rows in place.
func (d *Document) Apply(m Mutation) (EditResult, error) {
	res := EditResult{Column: d.ColumnIndex(m.Column)}
	if res.Column < 0 {
		return res, fmt.Errorf("%w: %q not in header %v", ErrColumnNotFound, m.Column, d.Header)
	}

	for i, row := range d.Rows {
		if len(row) == 0 || row[0] != m.RowKey {
			continue
		}
		if res.Column >= len(row) {
			res.Short++
			continue
		}
		res.Previous = append(res.Previous, row[res.Column])
		row[res.Column] = m.Value
		res.Matched++

		sp := d.cells[i][res.Column]
		d.edits[sp.start] = edit{span: sp, value: encodeField(m.Value)}
	}

	return res, nil
}

// encodeField quotes v the way a CSV writer would.
func encodeField(v string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write([]string{v})
	w.Flush()
	return strings.TrimSuffix(sb.String(), "\n")
}

// String returns the source text with the rewritten cells spliced in. Every
// other byte, quoting and blank lines included, is left as it was.
func (d *Document) String() string {
	starts := make([]int, 0, len(d.edits))
	for start := range d.edits {
		starts = append(starts, start)
	}
	sort.Ints(starts)

	var sb strings.Builder
	if d.bom {
		sb.WriteString(bom)
	}
	last := 0
	for _, start := range starts {
		e := d.edits[start]
		sb.WriteString(d.text[last:e.start])
		sb.WriteString(e.value)
		last = e.end
	}
	sb.WriteString(d.text[last:])
	return sb.String()
}

// Edit applies one mutation to text. The input is returned verbatim when it
// cannot be parsed, the column is absent, or no row matches; the error
// explains the first two cases.
func Edit(text string, m Mutation) (string, EditResult, error) {
	doc, err := Parse(text)
	if err != nil {
		return text, EditResult{Column: -1}, err
	}

	res, err := doc.Apply(m)
	if err != nil {
		return text, res, err
	}
	if res.Matched == 0 {
		return text, res, nil
	}

	return doc.String(), res, nil
}
