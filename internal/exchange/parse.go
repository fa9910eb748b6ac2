package exchange

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadable is returned when the upload is not an xlsx workbook.
var ErrUnreadable = errors.New("invalid Excel file format")

// HeaderError reports a column header row that does not match the
// expected template.
type HeaderError struct {
	Expected []string
	Actual   []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("invalid template format: expected columns %q, got %q", e.Expected, e.Actual)
}

// RowError is a problem with one spreadsheet row. Row is 1-based, as
// shown by spreadsheet programs.
type RowError struct {
	Row     int
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// RegistryRow is one data row of a registry import.
type RegistryRow struct {
	Row         int
	Name        string
	Description string
}

// InventoryRow is one data row of an office inventory import.
type InventoryRow struct {
	Row         int
	StockID     string
	ItemName    string
	Quantity    int
	Description string
	Remarks     string
}

// readRows opens the active sheet and checks the header row against
// columns. Extra columns after the expected ones are allowed.
func readRows(r io.Reader, columns []string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var header []string
	if len(rows) >= HeaderRow {
		header = rows[HeaderRow-1]
	}
	actual := make([]string, len(header))
	for i, h := range header {
		actual[i] = strings.TrimSpace(h)
	}
	if len(actual) < len(columns) {
		return nil, &HeaderError{Expected: columns, Actual: actual}
	}
	for i, c := range columns {
		if actual[i] != c {
			return nil, &HeaderError{Expected: columns, Actual: actual}
		}
	}

	if len(rows) < FirstDataRow {
		return nil, nil
	}
	return rows[FirstDataRow-1:], nil
}

// field returns the trimmed value of column i, or "" past the row's end.
func field(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// ParseRegistrySheet reads a registry import. Blank rows are skipped; a
// row with a description but no name is an error.
func ParseRegistrySheet(r io.Reader) ([]RegistryRow, []RowError, error) {
	rows, err := readRows(r, RegistryTemplateColumns)
	if err != nil {
		return nil, nil, err
	}

	var out []RegistryRow
	var rowErrs []RowError
	for i, row := range rows {
		n := FirstDataRow + i
		name, desc := field(row, 1), field(row, 2)
		switch {
		case name == "" && desc == "":
			continue
		case name == "":
			rowErrs = append(rowErrs, RowError{Row: n, Message: "name is required"})
			continue
		}
		out = append(out, RegistryRow{Row: n, Name: name, Description: desc})
	}
	return out, rowErrs, nil
}

// ParseInventorySheet reads an office inventory import. Rows without a
// stock ID (blank lines, footers) are skipped. Quantities must be positive
// integers and a stock ID may appear only once per sheet; every violation
// is collected rather than stopping at the first.
func ParseInventorySheet(r io.Reader) ([]InventoryRow, []RowError, error) {
	rows, err := readRows(r, InventoryTemplateColumns)
	if err != nil {
		return nil, nil, err
	}

	var out []InventoryRow
	var rowErrs []RowError
	seen := make(map[string]int)
	for i, row := range rows {
		n := FirstDataRow + i
		stockID := field(row, 1)
		if stockID == "" {
			continue
		}

		if first, dup := seen[stockID]; dup {
			rowErrs = append(rowErrs, RowError{
				Row:     n,
				Message: fmt.Sprintf("stock ID %q already appears in row %d", stockID, first),
			})
			continue
		}
		seen[stockID] = n

		raw := field(row, 3)
		qty, ok := parseQuantity(raw)
		if !ok {
			rowErrs = append(rowErrs, RowError{
				Row:     n,
				Message: fmt.Sprintf("invalid quantity %q: must be a positive integer", raw),
			})
			continue
		}

		out = append(out, InventoryRow{
			Row:         n,
			StockID:     stockID,
			ItemName:    field(row, 2),
			Quantity:    qty,
			Description: field(row, 4),
			Remarks:     field(row, 5),
		})
	}
	return out, rowErrs, nil
}

// maxQuantity bounds imported quantities.
const maxQuantity = math.MaxInt32

// parseQuantity accepts whole numbers from 1 to maxQuantity, including ones
// a spreadsheet rendered as "12.0".
func parseQuantity(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 1 && n <= maxQuantity
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 1 || f > maxQuantity {
		return 0, false
	}
	return int(f), true
}
