// Package ledger applies the inventory business rules on top of the store:
// office scoping, quantity validation, spreadsheet import and export.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/popis/internal/metrics"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/policy"
	"github.com/erazemk/popis/internal/store"
)

// Service holds the ledger's dependencies. The zero values of the optional
// fields are usable: Now defaults to time.Now and Metrics may be nil.
type Service struct {
	DB                   *sql.DB
	StockPrefix          string
	ProtectNonZeroDelete bool
	Metrics              *metrics.Metrics
	Now                  func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// year returns the requested year tag, defaulting to the current year.
func (s *Service) year(year int) (int, error) {
	if year == 0 {
		return s.now().Year(), nil
	}
	if err := model.ValidateYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

// office loads an office, returning ErrNotFound when it does not exist.
func (s *Service) office(ctx context.Context, id int64) (*model.Office, error) {
	o, err := store.GetOffice(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("office %d: %w", id, store.ErrNotFound)
	}
	return o, nil
}

// writableOffice loads an office the actor may record inventory in. A
// missing office is reported before a forbidden one.
func (s *Service) writableOffice(ctx context.Context, a *policy.Actor, id int64) (*model.Office, error) {
	o, err := s.office(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OfficeScopedStaff, a, policy.Write, &policy.Target{OfficeID: id}); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns the records the actor may see, optionally narrowed to one
// office and one year. Staff see only their assigned offices.
func (s *Service) List(ctx context.Context, a *policy.Actor, officeID int64, year int) ([]model.InventoryRecord, error) {
	f, err := filter(a, officeID, year)
	if err != nil {
		return nil, err
	}
	return store.ListInventory(ctx, s.DB, f)
}

// Page sizes for ListPage.
const (
	DefaultPageSize = 15
	MaxPageSize     = 100
)

// Page is one page of a scoped inventory listing.
type Page struct {
	Count    int                     `json:"count"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
	Results  []model.InventoryRecord `json:"results"`
}

// ListPage is List split into pages. A zero page is the first one, a zero
// pageSize means DefaultPageSize and larger sizes are clamped to
// MaxPageSize. Pages past the last one are ErrNotFound.
func (s *Service) ListPage(ctx context.Context, a *policy.Actor, officeID int64, year, page, pageSize int) (*Page, error) {
	f, err := filter(a, officeID, year)
	if err != nil {
		return nil, err
	}

	page = max(page, 1)
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)

	count, err := store.CountInventory(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}
	if pages := (count + pageSize - 1) / pageSize; page > max(pages, 1) {
		return nil, fmt.Errorf("page %d: %w", page, store.ErrNotFound)
	}

	f.Limit, f.Offset = pageSize, (page-1)*pageSize
	records, err := store.ListInventory(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}
	return &Page{Count: count, Page: page, PageSize: pageSize, Results: records}, nil
}

// filter turns the actor's scope into a store filter.
func filter(a *policy.Actor, officeID int64, year int) (store.InventoryFilter, error) {
	scope, err := a.InventoryScope(officeID)
	if err != nil {
		return store.InventoryFilter{}, err
	}

	f := store.InventoryFilter{Year: year}
	if !scope.All {
		f.OfficeIDs = scope.OfficeIDs
		if f.OfficeIDs == nil {
			f.OfficeIDs = []int64{}
		}
	}
	return f, nil
}

// Get returns one record. Records outside the actor's offices are reported
// as missing so their existence is not revealed.
func (s *Service) Get(ctx context.Context, a *policy.Actor, id int64) (*model.InventoryRecord, error) {
	r, err := store.GetInventoryRecord(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if r == nil || policy.Check(policy.OfficeScopedStaff, a, policy.Read, &policy.Target{OfficeID: r.OfficeID}) != nil {
		return nil, fmt.Errorf("inventory record %d: %w", id, store.ErrNotFound)
	}
	return r, nil
}

// CreateInput describes a new inventory record. The registry entry is
// identified by StockID, or by RegistryID when StockID is empty. A zero
// Year means the current year.
type CreateInput struct {
	OfficeID    int64  `json:"office_id"`
	StockID     string `json:"stock_id"`
	RegistryID  int64  `json:"registry_id"`
	Quantity    int    `json:"quantity"`
	Remarks     string `json:"remarks"`
	Description string `json:"description"`
	Year        int    `json:"year"`
}

// Create records a quantity of a registry entry in an office on behalf of
// the actor.
func (s *Service) Create(ctx context.Context, a *policy.Actor, in CreateInput) (*model.InventoryRecord, error) {
	if in.OfficeID == 0 {
		return nil, &model.ValidationError{Field: "office_id", Message: "office_id required"}
	}
	if in.StockID == "" && in.RegistryID == 0 {
		return nil, &model.ValidationError{Field: "stock_id", Message: "stock_id required"}
	}

	if _, err := s.writableOffice(ctx, a, in.OfficeID); err != nil {
		return nil, err
	}

	var entry *model.RegistryEntry
	var err error
	if in.StockID != "" {
		entry, err = store.GetRegistryEntryByStockID(ctx, s.DB, in.StockID)
	} else {
		entry, err = store.GetRegistryEntry(ctx, s.DB, in.RegistryID)
	}
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("registry entry: %w", store.ErrNotFound)
	}

	if err := model.ValidateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	year, err := s.year(in.Year)
	if err != nil {
		return nil, err
	}

	id, err := store.CreateInventoryRecord(ctx, s.DB, &model.InventoryRecord{
		UserID:      a.UserID,
		OfficeID:    in.OfficeID,
		RegistryID:  entry.ID,
		Quantity:    in.Quantity,
		Remarks:     in.Remarks,
		Description: in.Description,
		Year:        year,
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: %s is already recorded for this office in %d", store.ErrConflict, entry.Name, year)
	}
	if err != nil {
		return nil, err
	}
	return store.GetInventoryRecord(ctx, s.DB, id)
}

// Patch holds the mutable fields of a record; nil fields are left alone.
type Patch struct {
	Quantity    *int    `json:"quantity"`
	Remarks     *string `json:"remarks"`
	Description *string `json:"description"`
}

// Update changes quantity, remarks or description. Office, entry and year
// are fixed once a record exists.
func (s *Service) Update(ctx context.Context, a *policy.Actor, id int64, p Patch) (*model.InventoryRecord, error) {
	r, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OfficeScopedStaff, a, policy.Write, &policy.Target{OfficeID: r.OfficeID}); err != nil {
		return nil, err
	}

	if p.Quantity != nil {
		r.Quantity = *p.Quantity
	}
	if p.Remarks != nil {
		r.Remarks = *p.Remarks
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if err := model.ValidateQuantity(r.Quantity); err != nil {
		return nil, err
	}

	if err := store.UpdateInventoryRecord(ctx, s.DB, id, r.Quantity, r.Remarks, r.Description); err != nil {
		return nil, err
	}
	return store.GetInventoryRecord(ctx, s.DB, id)
}

// Delete removes a record. With ProtectNonZeroDelete set, records still
// holding a quantity are refused with ErrConflict.
func (s *Service) Delete(ctx context.Context, a *policy.Actor, id int64) (*model.InventoryRecord, error) {
	r, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OfficeScopedStaff, a, policy.Write, &policy.Target{OfficeID: r.OfficeID}); err != nil {
		return nil, err
	}
	if s.ProtectNonZeroDelete && r.Quantity > 0 {
		return nil, fmt.Errorf("%w: record still holds %d items", store.ErrConflict, r.Quantity)
	}

	if err := store.DeleteInventoryRecord(ctx, s.DB, id); err != nil {
		return nil, err
	}
	return r, nil
}
