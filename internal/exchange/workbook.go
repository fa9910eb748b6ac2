// Package exchange converts registry and inventory data to and from xlsx
// workbooks. Every workbook starts with the same block: organization name
// on row 1, a subtitle on row 2 and column headers on row 3.
package exchange

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of every generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Fixed rows of the header block.
const (
	TitleRow     = 1
	SubtitleRow  = 2
	HeaderRow    = 3
	FirstDataRow = 4
)

// Header is the text of the first two rows.
type Header struct {
	Organization string
	Subtitle     string
}

type styles struct {
	title    int
	subtitle int
	column   int
	rotated  int
	centered int
}

// sheet wraps one excelize worksheet with the shared styles.
type sheet struct {
	f     *excelize.File
	name  string
	style styles
}

// newSheet creates a single-sheet workbook named title.
func newSheet(title string) (*sheet, error) {
	f := excelize.NewFile()
	s := &sheet{f: f, name: sheetTitle(title)}

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), s.name); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	defs := []struct {
		id    *int
		style *excelize.Style
	}{
		{&s.style.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}},
		{&s.style.subtitle, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Italic: true, Size: 12},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}},
		{&s.style.column, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		}},
		{&s.style.rotated, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center", TextRotation: 90},
		}},
		{&s.style.centered, &excelize.Style{
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating style: %w", err)
		}
		*d.id = id
	}

	return s, nil
}

// close releases the workbook's temporary resources.
func (s *sheet) close() {
	_ = s.f.Close()
}

// cell returns the A1 reference of a 1-based column and row.
func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		// Only reachable with col or row < 1, which callers never pass.
		panic(err)
	}
	return name
}

// writeHeader writes the title and subtitle rows, each merged across
// width columns.
func (s *sheet) writeHeader(h Header, width int) error {
	rows := []struct {
		row   int
		text  string
		style int
	}{
		{TitleRow, h.Organization, s.style.title},
		{SubtitleRow, h.Subtitle, s.style.subtitle},
	}
	for _, r := range rows {
		if err := s.f.SetCellValue(s.name, cell(1, r.row), r.text); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		if width > 1 {
			if err := s.f.MergeCell(s.name, cell(1, r.row), cell(width, r.row)); err != nil {
				return fmt.Errorf("merging header: %w", err)
			}
		}
		if err := s.f.SetCellStyle(s.name, cell(1, r.row), cell(width, r.row), r.style); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}
	}
	return nil
}

// writeColumns writes the column header row.
func (s *sheet) writeColumns(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := s.writeRow(HeaderRow, row); err != nil {
		return err
	}
	return s.f.SetCellStyle(s.name, cell(1, HeaderRow), cell(len(columns), HeaderRow), s.style.column)
}

// writeRow writes values starting in column A of the given row.
func (s *sheet) writeRow(row int, values []any) error {
	if err := s.f.SetSheetRow(s.name, cell(1, row), &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

// setWidths sets column widths starting at column A.
func (s *sheet) setWidths(widths ...float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := s.f.SetColWidth(s.name, col, col, w); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	return nil
}

// bytes serializes the workbook.
func (s *sheet) bytes() ([]byte, error) {
	buf, err := s.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// render creates a sheet, runs fill on it and returns the serialized
// workbook.
func render(title string, fill func(s *sheet) error) ([]byte, error) {
	s, err := newSheet(title)
	if err != nil {
		return nil, err
	}
	defer s.close()

	if err := fill(s); err != nil {
		return nil, err
	}
	return s.bytes()
}

// sheetTitle makes a string usable as a worksheet name: no []:*?/\ and at
// most 31 characters.
func sheetTitle(title string) string {
	title = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	title = strings.Trim(title, "'")

	if r := []rune(title); len(r) > 31 {
		title = string(r[:31])
	}
	if title == "" {
		return "Sheet1"
	}
	return title
}

// Filename makes a string safe for a Content-Disposition filename.
func Filename(base string) string {
	var b bytes.Buffer
	for _, r := range strings.TrimSpace(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "workbook.xlsx"
	}
	return b.String() + ".xlsx"
}
