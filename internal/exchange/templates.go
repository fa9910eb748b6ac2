package exchange

import (
	"fmt"
	"time"

	"github.com/erazemk/popis/internal/model"
)

// Column sets. Imports validate the header row against these.
var (
	RegistryTemplateColumns = []string{"S/N", "Name", "Description"}
	RegistryColumns         = []string{"S/N", "Stock ID", "Name", "Description", "Unit Cost"}

	InventoryTemplateColumns = []string{"S/N", "Stock ID", "Items", "Qty", "Description (Optional)", "Remarks"}
	InventoryExportColumns   = append(append([]string{}, InventoryTemplateColumns...),
		"Office", "Department", "Year", "Updated At")
)

// OfficeSubtitle is the second header row of office-specific workbooks.
func OfficeSubtitle(o *model.Office) string {
	dept := o.Department
	if dept == "" {
		dept = "No Department"
	}
	return fmt.Sprintf("Office: %s | Department: %s", o.Name, dept)
}

// RegistryTemplate returns an empty workbook for registry imports.
func RegistryTemplate(h Header) ([]byte, error) {
	return render("Item Register Template", func(s *sheet) error {
		if err := s.writeHeader(h, len(RegistryTemplateColumns)); err != nil {
			return err
		}
		if err := s.writeColumns(RegistryTemplateColumns); err != nil {
			return err
		}
		return s.setWidths(8, 40, 60)
	})
}

// RegistryWorkbook lists the whole registry.
func RegistryWorkbook(h Header, entries []model.RegistryEntry) ([]byte, error) {
	return render("Item Register", func(s *sheet) error {
		if err := s.writeHeader(h, len(RegistryColumns)); err != nil {
			return err
		}
		if err := s.writeColumns(RegistryColumns); err != nil {
			return err
		}

		for i, e := range entries {
			cost, _ := e.UnitCost.Float64()
			row := []any{i + 1, e.StockID, e.Name, orNA(e.Description), cost}
			if err := s.writeRow(FirstDataRow+i, row); err != nil {
				return err
			}
		}
		return s.setWidths(8, 16, 40, 60, 14)
	})
}

// InventoryTemplate returns the office template pre-filled with one row
// per registry entry and a signature footer.
func InventoryTemplate(h Header, officeName string, entries []model.RegistryEntry, signedBy string) ([]byte, error) {
	return render("Template for "+officeName, func(s *sheet) error {
		width := len(InventoryTemplateColumns)
		if err := s.writeHeader(h, width); err != nil {
			return err
		}
		if err := s.writeColumns(InventoryTemplateColumns); err != nil {
			return err
		}

		for i, e := range entries {
			row := []any{i + 1, e.StockID, e.Name, nil, e.Description, nil}
			if err := s.writeRow(FirstDataRow+i, row); err != nil {
				return err
			}
		}

		// One blank row, then the footer. The stock ID column stays empty so
		// the footer is skipped on import.
		footer := FirstDataRow + len(entries) + 1
		err := s.f.SetCellValue(s.name, cell(1, footer),
			fmt.Sprintf("Signature: %s. Ensure stock IDs match the registry.", signedBy))
		if err != nil {
			return fmt.Errorf("writing footer: %w", err)
		}

		return s.setWidths(8, 16, 30, 8, 40, 30)
	})
}

// InventoryExport lists inventory records in the template column layout
// followed by office, department, year and last update, so an export of
// a single office imports back unchanged.
func InventoryExport(h Header, records []model.InventoryRecord, exportedBy string) ([]byte, error) {
	return render("Inventory Items", func(s *sheet) error {
		width := len(InventoryExportColumns)
		if err := s.writeHeader(h, width); err != nil {
			return err
		}
		if err := s.writeColumns(InventoryExportColumns); err != nil {
			return err
		}

		for i, r := range records {
			row := []any{
				i + 1,
				r.StockID,
				r.ItemName,
				r.Quantity,
				r.Description,
				r.Remarks,
				r.OfficeName,
				r.Department,
				r.Year,
				r.UpdatedAt.Format(time.DateTime),
			}
			if err := s.writeRow(FirstDataRow+i, row); err != nil {
				return err
			}
		}

		footer := FirstDataRow + len(records) + 1
		if err := s.f.SetCellValue(s.name, cell(1, footer), "Exported by: "+exportedBy); err != nil {
			return fmt.Errorf("writing footer: %w", err)
		}
		if err := s.f.MergeCell(s.name, cell(1, footer), cell(width, footer)); err != nil {
			return fmt.Errorf("merging footer: %w", err)
		}

		return s.setWidths(8, 16, 30, 8, 30, 30, 20, 20, 8, 20)
	})
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
