package ledger

import (
	"context"
	"fmt"

	"github.com/erazemk/popis/internal/exchange"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/policy"
	"github.com/erazemk/popis/internal/store"
)

// Workbook kinds, used as metric labels.
const (
	WorkbookRegistryTemplate  = "registry_template"
	WorkbookRegistry          = "registry"
	WorkbookInventoryTemplate = "inventory_template"
	WorkbookInventoryExport   = "inventory_export"
	WorkbookBroadsheet        = "broadsheet"
)

// Workbook is a generated spreadsheet ready to be sent as an attachment.
type Workbook struct {
	Filename string
	Data     []byte
}

func (s *Service) workbook(kind, name string, data []byte, err error) (*Workbook, error) {
	if err != nil {
		return nil, fmt.Errorf("generating %s workbook: %w", kind, err)
	}
	s.Metrics.WorkbookGenerated(kind)
	return &Workbook{Filename: exchange.Filename(name), Data: data}, nil
}

// RegistryTemplate returns the empty registry import sheet.
func (s *Service) RegistryTemplate(ctx context.Context, a *policy.Actor, organization string) (*Workbook, error) {
	if err := policy.Check(policy.AdminOrSuperAdmin, a, policy.Write, nil); err != nil {
		return nil, err
	}
	data, err := exchange.RegistryTemplate(exchange.Header{
		Organization: organization,
		Subtitle:     "Item Register Template",
	})
	return s.workbook(WorkbookRegistryTemplate, "item_register_template", data, err)
}

// RegistryDownload lists the whole registry.
func (s *Service) RegistryDownload(ctx context.Context, a *policy.Actor, organization string) (*Workbook, error) {
	if err := policy.Check(policy.ReadOnlyOrElevated, a, policy.Read, nil); err != nil {
		return nil, err
	}
	entries, err := store.ListRegistry(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	data, err := exchange.RegistryWorkbook(exchange.Header{
		Organization: organization,
		Subtitle:     "Item Register",
	}, entries)
	return s.workbook(WorkbookRegistry, "item_register", data, err)
}

// InventoryTemplate returns an office's import sheet pre-filled with every
// registry entry and signed with the actor's name.
func (s *Service) InventoryTemplate(ctx context.Context, a *policy.Actor, organization string, officeID int64) (*Workbook, error) {
	office, err := s.writableOffice(ctx, a, officeID)
	if err != nil {
		return nil, err
	}
	entries, err := store.ListRegistry(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	data, err := exchange.InventoryTemplate(exchange.Header{
		Organization: organization,
		Subtitle:     exchange.OfficeSubtitle(office),
	}, office.Name, entries, a.Username)
	return s.workbook(WorkbookInventoryTemplate, "inventory_template_"+office.Name, data, err)
}

// Export writes the records List would return for the same arguments.
func (s *Service) Export(ctx context.Context, a *policy.Actor, organization string, officeID int64, year int) (*Workbook, error) {
	subtitle, name := "Inventory Items", "inventory"
	if officeID != 0 {
		office, err := s.office(ctx, officeID)
		if err != nil {
			return nil, err
		}
		subtitle, name = exchange.OfficeSubtitle(office), "inventory_"+office.Name
	}
	if year != 0 {
		subtitle = fmt.Sprintf("%s | Year: %d", subtitle, year)
		name = fmt.Sprintf("%s_%d", name, year)
	}

	records, err := s.List(ctx, a, officeID, year)
	if err != nil {
		return nil, err
	}
	data, err := exchange.InventoryExport(exchange.Header{
		Organization: organization,
		Subtitle:     subtitle,
	}, records, a.Username)
	return s.workbook(WorkbookInventoryExport, name, data, err)
}

// Broadsheet cross-tabulates every office's quantities for a year. The
// year is required.
func (s *Service) Broadsheet(ctx context.Context, a *policy.Actor, organization string, year int) (*Workbook, error) {
	if err := policy.Check(policy.AdminOrSuperAdmin, a, policy.Read, nil); err != nil {
		return nil, err
	}
	if year == 0 {
		return nil, &model.ValidationError{Field: "year", Message: "year parameter is required"}
	}
	if err := model.ValidateYear(year); err != nil {
		return nil, err
	}
	totals, err := store.OfficeTotals(ctx, s.DB, year)
	if err != nil {
		return nil, err
	}
	data, err := exchange.BroadsheetWorkbook(organization, exchange.BuildBroadsheet(year, totals))
	return s.workbook(WorkbookBroadsheet, fmt.Sprintf("broadsheet_%d", year), data, err)
}
