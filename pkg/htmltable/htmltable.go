// Package htmltable reads positional HTML tables into a header row and a grid of
// normalized cell text.
package htmltable

import (
	"attendance-backend/pkg/htmlutil"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrMissingColumn = errors.New("missing column")
)

// colspans above this are treated as malformed markup and clamped.
const maxColspan = 64

// Row is the normalized text of each cell in a table row, colspans expanded.
type Row []string

// Get returns the cell at col, or "" when the row is shorter than that.
func (r Row) Get(col int) string {
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Table is a header row plus body rows.
type Table struct {
	Headers Row
	Rows    []Row
}

// Find locates the index-th element matching selector in doc (in document order)
// and reads it as a table.
func Find(doc *goquery.Document, selector string, index int) (Table, error) {
	matches := doc.Find(selector)
	if index < 0 || index >= matches.Length() {
		return Table{}, fmt.Errorf(
			"%w: '%s' index %d (found %d)",
			ErrTableNotFound, selector, index, matches.Length(),
		)
	}
	return FromSelection(matches.Eq(index)), nil
}

// FromSelection reads the first node in sel as a table. Rows that belong to tables
// nested inside it are ignored.
//
// The header is the last row of the leading run of rows made only of <th>, so title
// rows spanning the whole table are skipped. When the table has no <th> rows the first
// row is the header.
func FromSelection(sel *goquery.Selection) Table {
	table := sel.First()

	var rows []*goquery.Selection
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest("table").IsSelection(table) {
			rows = append(rows, tr)
		}
	})
	if len(rows) == 0 {
		return Table{}
	}

	headerIdx := 0
	for i, tr := range rows {
		if !isHeaderRow(tr) {
			break
		}
		headerIdx = i
	}

	out := Table{Headers: readRow(rows[headerIdx])}
	for _, tr := range rows[headerIdx+1:] {
		row := readRow(tr)
		if isBlank(row) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func isHeaderRow(tr *goquery.Selection) bool {
	cells := tr.ChildrenFiltered("th, td")
	return cells.Length() > 0 && cells.Length() == cells.Filter("th").Length()
}

func readRow(tr *goquery.Selection) Row {
	var row Row
	tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		text := ""
		if len(cell.Nodes) > 0 {
			text = htmlutil.NodeText(cell.Nodes[0])
		}
		span := 1
		if raw, ok := cell.Attr("colspan"); ok {
			parsed, err := strconv.Atoi(strings.TrimSpace(raw))
			if err == nil && parsed > 1 {
				span = min(parsed, maxColspan)
			}
		}
		for i := 0; i < span; i++ {
			row = append(row, text)
		}
	})
	return row
}

func isBlank(row Row) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// NormalizeHeader lowercases a header and drops everything that is not a letter or
// digit, so "Max. Hours" and "max hours" compare equal.
func NormalizeHeader(header string) string {
	var out strings.Builder
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// Column returns the position of the first header matching any of names.
func (t Table) Column(names ...string) (int, error) {
	for _, name := range names {
		target := NormalizeHeader(name)
		for i, header := range t.Headers {
			if NormalizeHeader(header) == target {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %s (headers: %v)", ErrMissingColumn, strings.Join(names, " | "), t.Headers)
}

// OptionalColumn is Column that reports absence as -1 instead of an error.
func (t Table) OptionalColumn(names ...string) int {
	idx, err := t.Column(names...)
	if err != nil {
		return -1
	}
	return idx
}
