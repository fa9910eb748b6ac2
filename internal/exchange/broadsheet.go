package exchange

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/erazemk/popis/internal/model"
)

// NoDepartment labels offices without a department in the broadsheet.
const NoDepartment = "No Department"

// BroadsheetOffice is one quantity column.
type BroadsheetOffice struct {
	ID   int64
	Name string
}

// BroadsheetDepartment groups the office columns it spans.
type BroadsheetDepartment struct {
	Name    string
	Offices []BroadsheetOffice
}

// BroadsheetRow is one registry entry. Quantities is parallel to the
// office columns in department order; nil marks an office with no record.
type BroadsheetRow struct {
	StockID     string
	Name        string
	Description string
	Quantities  []*int
	Total       int
}

// Broadsheet is the office by item cross-tabulation for one year.
type Broadsheet struct {
	Year        int
	Departments []BroadsheetDepartment
	Rows        []BroadsheetRow
}

// Offices returns the office columns in display order.
func (b *Broadsheet) Offices() []BroadsheetOffice {
	var out []BroadsheetOffice
	for _, d := range b.Departments {
		out = append(out, d.Offices...)
	}
	return out
}

// BuildBroadsheet arranges per-office totals into a broadsheet. Only
// offices with at least one record in the year get a column; departments
// and the offices within them are sorted by name, items keep the order of
// totals.
func BuildBroadsheet(year int, totals []model.OfficeTotal) *Broadsheet {
	b := &Broadsheet{Year: year}

	byDept := make(map[string]map[int64]string)
	for _, t := range totals {
		dept := t.Department
		if strings.TrimSpace(dept) == "" {
			dept = NoDepartment
		}
		if byDept[dept] == nil {
			byDept[dept] = make(map[int64]string)
		}
		byDept[dept][t.OfficeID] = t.OfficeName
	}

	for name, offices := range byDept {
		d := BroadsheetDepartment{Name: name}
		for id, office := range offices {
			d.Offices = append(d.Offices, BroadsheetOffice{ID: id, Name: office})
		}
		slices.SortFunc(d.Offices, func(a, b BroadsheetOffice) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		})
		b.Departments = append(b.Departments, d)
	}
	slices.SortFunc(b.Departments, func(a, b BroadsheetDepartment) int {
		return cmp.Compare(a.Name, b.Name)
	})

	column := make(map[int64]int)
	for i, o := range b.Offices() {
		column[o.ID] = i
	}
	width := len(column)

	rowIndex := make(map[int64]int)
	for _, t := range totals {
		i, ok := rowIndex[t.RegistryID]
		if !ok {
			i = len(b.Rows)
			rowIndex[t.RegistryID] = i
			b.Rows = append(b.Rows, BroadsheetRow{
				StockID:     t.StockID,
				Name:        t.ItemName,
				Description: t.ItemDescription,
				Quantities:  make([]*int, width),
			})
		}

		row := &b.Rows[i]
		col := column[t.OfficeID]
		if row.Quantities[col] == nil {
			row.Quantities[col] = new(int)
		}
		*row.Quantities[col] += t.Quantity
		row.Total += t.Quantity
	}

	return b
}

// Fixed broadsheet columns before and after the office block.
var (
	broadsheetLeading  = []string{"S/N", "STOCK ID", "ITEM NAME", "DESCRIPTION"}
	broadsheetTrailing = []string{"TOTAL", "UNIT", "VALUE"}
)

// BroadsheetWorkbook renders a broadsheet. Rows 3 and 4 form a two-level
// header: departments span their offices on row 3 and office names sit on
// row 4; the fixed columns are merged across both rows. Data starts on
// row 5. UNIT and VALUE are left blank for manual costing.
func BroadsheetWorkbook(organization string, b *Broadsheet) ([]byte, error) {
	return render("Broadsheet", func(s *sheet) error {
		offices := b.Offices()
		lead, trail := len(broadsheetLeading), len(broadsheetTrailing)
		width := lead + len(offices) + trail

		h := Header{
			Organization: strings.ToUpper(organization),
			Subtitle:     fmt.Sprintf("Inventory Data for the Year %d", b.Year),
		}
		if err := s.writeHeader(h, width); err != nil {
			return err
		}

		officeRow := HeaderRow + 1
		spanBoth := func(col int, label string) error {
			if err := s.f.SetCellValue(s.name, cell(col, HeaderRow), label); err != nil {
				return err
			}
			return s.f.MergeCell(s.name, cell(col, HeaderRow), cell(col, officeRow))
		}

		for i, label := range broadsheetLeading {
			if err := spanBoth(i+1, label); err != nil {
				return fmt.Errorf("writing broadsheet header: %w", err)
			}
		}

		col := lead + 1
		for _, d := range b.Departments {
			start := col
			for _, o := range d.Offices {
				if err := s.f.SetCellValue(s.name, cell(col, officeRow), o.Name); err != nil {
					return fmt.Errorf("writing office header: %w", err)
				}
				col++
			}
			if err := s.f.SetCellValue(s.name, cell(start, HeaderRow), d.Name); err != nil {
				return fmt.Errorf("writing department header: %w", err)
			}
			if col-1 > start {
				if err := s.f.MergeCell(s.name, cell(start, HeaderRow), cell(col-1, HeaderRow)); err != nil {
					return fmt.Errorf("merging department header: %w", err)
				}
			}
		}

		for i, label := range broadsheetTrailing {
			if err := spanBoth(col+i, label); err != nil {
				return fmt.Errorf("writing broadsheet header: %w", err)
			}
		}

		if err := s.f.SetCellStyle(s.name, cell(1, HeaderRow), cell(width, HeaderRow), s.style.column); err != nil {
			return err
		}
		if len(offices) > 0 {
			err := s.f.SetCellStyle(s.name, cell(lead+1, officeRow), cell(lead+len(offices), officeRow), s.style.rotated)
			if err != nil {
				return err
			}
		}

		first := officeRow + 1
		for i, r := range b.Rows {
			values := make([]any, 0, width)
			values = append(values, i+1, r.StockID, r.Name, orNA(r.Description))
			for _, q := range r.Quantities {
				if q == nil {
					values = append(values, nil)
				} else {
					values = append(values, *q)
				}
			}
			values = append(values, r.Total, nil, nil)
			if err := s.writeRow(first+i, values); err != nil {
				return err
			}
		}
		if len(b.Rows) > 0 {
			last := first + len(b.Rows) - 1
			if err := s.f.SetCellStyle(s.name, cell(lead+1, first), cell(width, last), s.style.centered); err != nil {
				return err
			}
		}

		widths := make([]float64, width)
		for i := range widths {
			widths[i] = 20
		}
		widths[0] = 8
		return s.setWidths(widths...)
	})
}
