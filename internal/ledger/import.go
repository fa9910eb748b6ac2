package ledger

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/erazemk/popis/internal/exchange"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/policy"
	"github.com/erazemk/popis/internal/store"
)

// Import kinds, used as metric labels.
const (
	KindInventory = "inventory"
	KindRegistry  = "registry"
)

// ImportResult counts what an applied import changed.
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// ImportError rejects a whole upload and lists every offending row.
type ImportError struct {
	Rows []exchange.RowError
}

func (e *ImportError) Error() string {
	if len(e.Rows) == 1 {
		return e.Rows[0].Error()
	}
	return fmt.Sprintf("%d rows are invalid", len(e.Rows))
}

// Messages returns the row errors as strings.
func (e *ImportError) Messages() []string {
	out := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		out[i] = r.Error()
	}
	return out
}

// ErrConcurrentImport reports that the ledger changed between planning and
// applying an import.
var ErrConcurrentImport = fmt.Errorf("%w: inventory was imported concurrently; retry", store.ErrConflict)

// sheetError turns an unreadable upload or a header mismatch into a
// validation error on the file field.
func sheetError(err error) error {
	var he *exchange.HeaderError
	if errors.Is(err, exchange.ErrUnreadable) || errors.As(err, &he) {
		return &model.ValidationError{Field: "file", Message: err.Error()}
	}
	return err
}

// Change is one planned write. RecordID is zero for new records.
type Change struct {
	Row         int
	RecordID    int64
	RegistryID  int64
	Quantity    int
	Remarks     string
	Description string
}

// Plan is a validated inventory import that has not been applied yet.
type Plan struct {
	UserID   int64
	OfficeID int64
	Year     int
	Creates  []Change
	Updates  []Change
}

// PlanImport parses an office inventory sheet and resolves every row
// against the registry and the actor's existing records. All row problems
// are collected; if there are any the result is an *ImportError and nothing
// is planned.
func (s *Service) PlanImport(ctx context.Context, a *policy.Actor, officeID int64, year int, r io.Reader) (*Plan, error) {
	if _, err := s.writableOffice(ctx, a, officeID); err != nil {
		return nil, err
	}
	year, err := s.year(year)
	if err != nil {
		return nil, err
	}

	rows, rowErrs, err := exchange.ParseInventorySheet(r)
	if err != nil {
		s.Metrics.ImportRejected(KindInventory)
		return nil, sheetError(err)
	}

	entries, err := store.ListRegistry(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	byStockID := make(map[string]*model.RegistryEntry, len(entries))
	for i := range entries {
		byStockID[entries[i].StockID] = &entries[i]
	}

	existing, err := store.InventoryRecordIDs(ctx, s.DB, a.UserID, officeID, year)
	if err != nil {
		return nil, err
	}

	plan := &Plan{UserID: a.UserID, OfficeID: officeID, Year: year}
	for _, row := range rows {
		entry, ok := byStockID[row.StockID]
		if !ok {
			rowErrs = append(rowErrs, exchange.RowError{
				Row:     row.Row,
				Message: fmt.Sprintf("unknown stock ID %q", row.StockID),
			})
			continue
		}
		if !model.SameItemName(row.ItemName, entry.Name) {
			rowErrs = append(rowErrs, exchange.RowError{
				Row:     row.Row,
				Message: fmt.Sprintf("item name %q does not match stock ID %q (%s)", row.ItemName, row.StockID, entry.Name),
			})
			continue
		}

		c := Change{
			Row:         row.Row,
			RecordID:    existing[entry.ID],
			RegistryID:  entry.ID,
			Quantity:    row.Quantity,
			Remarks:     row.Remarks,
			Description: row.Description,
		}
		if c.RecordID != 0 {
			plan.Updates = append(plan.Updates, c)
		} else {
			plan.Creates = append(plan.Creates, c)
		}
	}

	if len(rowErrs) > 0 {
		sortRowErrors(rowErrs)
		s.Metrics.ImportRejected(KindInventory)
		return nil, &ImportError{Rows: rowErrs}
	}
	return plan, nil
}

// ApplyImport writes a plan in one transaction. A record deleted or
// created by someone else since planning rolls everything back with
// ErrConcurrentImport.
func (s *Service) ApplyImport(ctx context.Context, plan *Plan) (*ImportResult, error) {
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, c := range plan.Updates {
			err := store.UpdateInventoryRecord(ctx, tx, c.RecordID, c.Quantity, c.Remarks, c.Description)
			if errors.Is(err, store.ErrNotFound) {
				return ErrConcurrentImport
			}
			if err != nil {
				return fmt.Errorf("row %d: %w", c.Row, err)
			}
		}
		for _, c := range plan.Creates {
			_, err := store.CreateInventoryRecord(ctx, tx, &model.InventoryRecord{
				UserID:      plan.UserID,
				OfficeID:    plan.OfficeID,
				RegistryID:  c.RegistryID,
				Quantity:    c.Quantity,
				Remarks:     c.Remarks,
				Description: c.Description,
				Year:        plan.Year,
			})
			if errors.Is(err, store.ErrConflict) {
				return ErrConcurrentImport
			}
			if err != nil {
				return fmt.Errorf("row %d: %w", c.Row, err)
			}
		}
		return nil
	})
	if errors.Is(err, ErrConcurrentImport) {
		s.Metrics.ImportConflict(KindInventory)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Created: len(plan.Creates), Updated: len(plan.Updates), Errors: []string{}}
	s.Metrics.ImportApplied(KindInventory, result.Created, result.Updated)
	return result, nil
}

// Import plans and applies an office inventory sheet. Rows already
// recorded by the actor for the office and year are overwritten; the rest
// are created.
func (s *Service) Import(ctx context.Context, a *policy.Actor, officeID int64, year int, r io.Reader) (*ImportResult, error) {
	plan, err := s.PlanImport(ctx, a, officeID, year, r)
	if err != nil {
		return nil, err
	}
	return s.ApplyImport(ctx, plan)
}

// ImportRegistry upserts registry entries by name from a registry sheet.
// Names that differ only in case or spacing are one entry, so a sheet
// naming the same item twice is rejected.
func (s *Service) ImportRegistry(ctx context.Context, a *policy.Actor, r io.Reader) (*ImportResult, error) {
	if err := policy.Check(policy.AdminOrSuperAdmin, a, policy.Write, nil); err != nil {
		return nil, err
	}

	rows, rowErrs, err := exchange.ParseRegistrySheet(r)
	if err != nil {
		s.Metrics.ImportRejected(KindRegistry)
		return nil, sheetError(err)
	}

	seen := make(map[string]int)
	var valid []exchange.RegistryRow
	for _, row := range rows {
		key := model.NormalizeItemName(row.Name)
		if first, dup := seen[key]; dup {
			rowErrs = append(rowErrs, exchange.RowError{
				Row:     row.Row,
				Message: fmt.Sprintf("item %q already appears in row %d", strings.TrimSpace(row.Name), first),
			})
			continue
		}
		seen[key] = row.Row
		valid = append(valid, row)
	}
	if len(rowErrs) > 0 {
		sortRowErrors(rowErrs)
		s.Metrics.ImportRejected(KindRegistry)
		return nil, &ImportError{Rows: rowErrs}
	}

	result := &ImportResult{Errors: []string{}}
	err = store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, row := range valid {
			created, err := store.UpsertRegistryEntry(ctx, tx, s.StockPrefix, row.Name, row.Description)
			if err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrConflict) {
		s.Metrics.ImportConflict(KindRegistry)
		return nil, fmt.Errorf("%w: registry was changed concurrently; retry", store.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	s.Metrics.ImportApplied(KindRegistry, result.Created, result.Updated)
	return result, nil
}

func sortRowErrors(errs []exchange.RowError) {
	slices.SortStableFunc(errs, func(a, b exchange.RowError) int {
		return cmp.Compare(a.Row, b.Row)
	})
}
