package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/model"
)

type inventoryFixture struct {
	db        *sql.DB
	staff     *model.User
	officeA   *model.Office
	officeB   *model.Office
	laptop    *model.RegistryEntry
	projector *model.RegistryEntry
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	f := &inventoryFixture{db: database}
	f.staff, _ = CreateUser(ctx, database, "janitor", "", "hash", model.RoleStaff, nil)
	f.officeA, _ = CreateOffice(ctx, database, "Stores", "Logistics")
	f.officeB, _ = CreateOffice(ctx, database, "Registry", "Admin")
	f.laptop, _ = CreateRegistryEntry(ctx, database, "INV-", "Laptop", "", decimal.Zero)
	f.projector, _ = CreateRegistryEntry(ctx, database, "INV-", "Projector", "", decimal.Zero)
	return f
}

func (f *inventoryFixture) add(t *testing.T, office *model.Office, entry *model.RegistryEntry, qty, year int) int64 {
	t.Helper()
	id, err := CreateInventoryRecord(context.Background(), f.db, &model.InventoryRecord{
		UserID: f.staff.ID, OfficeID: office.ID, RegistryID: entry.ID, Quantity: qty, Year: year,
	})
	if err != nil {
		t.Fatalf("CreateInventoryRecord: %v", err)
	}
	return id
}

func TestCreateAndGetInventoryRecord(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	id := f.add(t, f.officeA, f.laptop, 10, 2024)

	r, err := GetInventoryRecord(ctx, f.db, id)
	if err != nil {
		t.Fatalf("GetInventoryRecord: %v", err)
	}
	if r.Quantity != 10 || r.Year != 2024 {
		t.Errorf("unexpected record %+v", r)
	}
	if r.OfficeName != "Stores" || r.ItemName != "Laptop" || r.Username != "janitor" {
		t.Errorf("joined fields not populated: %+v", r)
	}
	if r.StockID != f.laptop.StockID {
		t.Errorf("expected stock id %q, got %q", f.laptop.StockID, r.StockID)
	}

	missing, err := GetInventoryRecord(ctx, f.db, 9999)
	if err != nil {
		t.Fatalf("GetInventoryRecord: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing record")
	}
}

func TestCreateInventoryRecordDuplicate(t *testing.T) {
	f := newInventoryFixture(t)

	f.add(t, f.officeA, f.laptop, 10, 2024)

	_, err := CreateInventoryRecord(context.Background(), f.db, &model.InventoryRecord{
		UserID: f.staff.ID, OfficeID: f.officeA.ID, RegistryID: f.laptop.ID, Quantity: 3, Year: 2024,
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	// A different year is a different record.
	f.add(t, f.officeA, f.laptop, 3, 2025)
}

func TestCreateInventoryRecordRejectsZeroQuantity(t *testing.T) {
	f := newInventoryFixture(t)

	_, err := CreateInventoryRecord(context.Background(), f.db, &model.InventoryRecord{
		UserID: f.staff.ID, OfficeID: f.officeA.ID, RegistryID: f.laptop.ID, Quantity: 0, Year: 2024,
	})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected validation error from CHECK constraint, got %v", err)
	}
}

func TestListInventoryFilter(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	f.add(t, f.officeA, f.laptop, 10, 2024)
	f.add(t, f.officeA, f.projector, 5, 2024)
	f.add(t, f.officeB, f.laptop, 2, 2024)
	f.add(t, f.officeB, f.laptop, 4, 2023)

	tests := []struct {
		name   string
		filter InventoryFilter
		want   int
	}{
		{"all", InventoryFilter{}, 4},
		{"office A", InventoryFilter{OfficeIDs: []int64{f.officeA.ID}}, 2},
		{"both offices", InventoryFilter{OfficeIDs: []int64{f.officeA.ID, f.officeB.ID}}, 4},
		{"empty scope", InventoryFilter{OfficeIDs: []int64{}}, 0},
		{"year", InventoryFilter{Year: 2023}, 1},
		{"office and year", InventoryFilter{OfficeIDs: []int64{f.officeB.ID}, Year: 2024}, 1},
		{"other user", InventoryFilter{UserID: f.staff.ID + 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ListInventory(ctx, f.db, tt.filter)
			if err != nil {
				t.Fatalf("ListInventory: %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("expected %d records, got %d", tt.want, len(records))
			}
		})
	}
}

func TestListInventoryLimitAndCount(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	f.add(t, f.officeA, f.laptop, 1, 2024)
	f.add(t, f.officeA, f.projector, 2, 2024)
	f.add(t, f.officeB, f.laptop, 3, 2024)
	f.add(t, f.officeB, f.laptop, 4, 2025)

	filter := InventoryFilter{Year: 2024, Limit: 2, Offset: 2}
	records, err := ListInventory(ctx, f.db, filter)
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	// Ordered by office name: Registry before Stores.
	if len(records) != 1 || records[0].Quantity != 2 {
		t.Errorf("unexpected second page %+v", records)
	}

	n, err := CountInventory(ctx, f.db, filter)
	if err != nil {
		t.Fatalf("CountInventory: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 records in 2024, got %d", n)
	}

	if n, _ := CountInventory(ctx, f.db, InventoryFilter{OfficeIDs: []int64{}}); n != 0 {
		t.Errorf("empty office filter should count nothing, got %d", n)
	}
}

func TestUpdateAndDeleteInventoryRecord(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	id := f.add(t, f.officeA, f.laptop, 10, 2024)

	if err := UpdateInventoryRecord(ctx, f.db, id, 7, "two broken", "grey"); err != nil {
		t.Fatalf("UpdateInventoryRecord: %v", err)
	}
	r, _ := GetInventoryRecord(ctx, f.db, id)
	if r.Quantity != 7 || r.Remarks != "two broken" || r.Description != "grey" {
		t.Errorf("unexpected record after update: %+v", r)
	}

	if err := DeleteInventoryRecord(ctx, f.db, id); err != nil {
		t.Fatalf("DeleteInventoryRecord: %v", err)
	}
	if err := DeleteInventoryRecord(ctx, f.db, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := UpdateInventoryRecord(ctx, f.db, id, 1, "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteOfficeCascadesInventory(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	f.add(t, f.officeA, f.laptop, 10, 2024)
	DeleteOffice(ctx, f.db, f.officeA.ID)

	records, _ := ListInventory(ctx, f.db, InventoryFilter{})
	if len(records) != 0 {
		t.Errorf("expected inventory removed with office, got %d records", len(records))
	}
}

func TestDeleteUserCascadesInventory(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	f.add(t, f.officeA, f.laptop, 10, 2024)
	DeleteUser(ctx, f.db, f.staff.ID)

	records, _ := ListInventory(ctx, f.db, InventoryFilter{})
	if len(records) != 0 {
		t.Errorf("expected inventory removed with user, got %d records", len(records))
	}
}

func TestInventoryRecordIDs(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	id := f.add(t, f.officeA, f.laptop, 10, 2024)
	f.add(t, f.officeA, f.projector, 10, 2023)

	ids, err := InventoryRecordIDs(ctx, f.db, f.staff.ID, f.officeA.ID, 2024)
	if err != nil {
		t.Fatalf("InventoryRecordIDs: %v", err)
	}
	if len(ids) != 1 || ids[f.laptop.ID] != id {
		t.Errorf("unexpected keys %v", ids)
	}
}

func TestOfficeTotals(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	other, _ := CreateUser(ctx, f.db, "other", "", "hash", model.RoleStaff, nil)

	f.add(t, f.officeA, f.laptop, 10, 2024)
	f.add(t, f.officeA, f.projector, 5, 2024)
	f.add(t, f.officeB, f.laptop, 1, 2023)
	CreateInventoryRecord(ctx, f.db, &model.InventoryRecord{
		UserID: other.ID, OfficeID: f.officeA.ID, RegistryID: f.laptop.ID, Quantity: 2, Year: 2024,
	})

	totals, err := OfficeTotals(ctx, f.db, 2024)
	if err != nil {
		t.Fatalf("OfficeTotals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 totals, got %d: %+v", len(totals), totals)
	}
	if totals[0].ItemName != "Laptop" || totals[0].Quantity != 12 {
		t.Errorf("expected Laptop summed to 12, got %+v", totals[0])
	}
	if totals[1].ItemName != "Projector" || totals[1].Quantity != 5 {
		t.Errorf("expected Projector 5, got %+v", totals[1])
	}
	if totals[0].Department != "Logistics" {
		t.Errorf("expected department Logistics, got %q", totals[0].Department)
	}
}
