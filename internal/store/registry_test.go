package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/model"
)

func TestCreateRegistryEntry(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, err := CreateRegistryEntry(ctx, database, "INV-", "  office   chair ", "ergonomic", decimal.RequireFromString("149.90"))
	if err != nil {
		t.Fatalf("CreateRegistryEntry: %v", err)
	}
	if e.Name != "Office Chair" {
		t.Errorf("expected normalized name 'Office Chair', got %q", e.Name)
	}
	if !strings.HasPrefix(e.StockID, "INV-") || len(e.StockID) != len("INV-")+8 {
		t.Errorf("unexpected stock id %q", e.StockID)
	}
	if !e.UnitCost.Equal(decimal.RequireFromString("149.9")) {
		t.Errorf("expected unit cost 149.9, got %s", e.UnitCost)
	}

	byStock, _ := GetRegistryEntryByStockID(ctx, database, e.StockID)
	if byStock == nil || byStock.ID != e.ID {
		t.Errorf("expected lookup by stock id to find entry")
	}

	byName, _ := GetRegistryEntryByName(ctx, database, "OFFICE CHAIR")
	if byName == nil || byName.ID != e.ID {
		t.Errorf("expected case-insensitive lookup by name to find entry")
	}
}

func TestCreateRegistryEntryDuplicateName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateRegistryEntry(ctx, database, "INV-", "Laptop", "", decimal.Zero)

	_, err := CreateRegistryEntry(ctx, database, "INV-", "LAPTOP", "", decimal.Zero)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	entries, _ := ListRegistry(ctx, database)
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestUpdateRegistryEntryKeepsStockID(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, _ := CreateRegistryEntry(ctx, database, "INV-", "Laptop", "", decimal.Zero)

	if err := UpdateRegistryEntry(ctx, database, e.ID, "notebook computer", "14 inch", decimal.NewFromInt(900)); err != nil {
		t.Fatalf("UpdateRegistryEntry: %v", err)
	}

	got, _ := GetRegistryEntry(ctx, database, e.ID)
	if got.StockID != e.StockID {
		t.Errorf("stock id changed from %q to %q", e.StockID, got.StockID)
	}
	if got.Name != "Notebook Computer" || got.Description != "14 inch" {
		t.Errorf("unexpected entry after update: %+v", got)
	}

	if err := UpdateRegistryEntry(ctx, database, 9999, "x", "", decimal.Zero); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertRegistryEntry(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	created, err := UpsertRegistryEntry(ctx, database, "INV-", "stapler", "")
	if err != nil {
		t.Fatalf("UpsertRegistryEntry: %v", err)
	}
	if !created {
		t.Error("expected first upsert to create")
	}

	created, err = UpsertRegistryEntry(ctx, database, "INV-", "Stapler", "heavy duty")
	if err != nil {
		t.Fatalf("UpsertRegistryEntry: %v", err)
	}
	if created {
		t.Error("expected second upsert to update")
	}

	e, _ := GetRegistryEntryByName(ctx, database, "stapler")
	if e.Description != "heavy duty" {
		t.Errorf("expected description to be updated, got %q", e.Description)
	}

	// An empty description keeps the existing one.
	UpsertRegistryEntry(ctx, database, "INV-", "STAPLER", "")
	e, _ = GetRegistryEntryByName(ctx, database, "stapler")
	if e.Description != "heavy duty" {
		t.Errorf("expected description kept, got %q", e.Description)
	}
}

func TestDeleteRegistryEntryReferenced(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, _ := CreateRegistryEntry(ctx, database, "INV-", "Projector", "", decimal.Zero)
	office, _ := CreateOffice(ctx, database, "Stores", "Logistics")
	user, _ := CreateUser(ctx, database, "janitor", "", "hash", model.RoleStaff, nil)

	recordID, err := CreateInventoryRecord(ctx, database, &model.InventoryRecord{
		UserID: user.ID, OfficeID: office.ID, RegistryID: e.ID, Quantity: 5, Year: 2024,
	})
	if err != nil {
		t.Fatalf("CreateInventoryRecord: %v", err)
	}

	if err := DeleteRegistryEntry(ctx, database, e.ID); !errors.Is(err, ErrReferenced) {
		t.Fatalf("expected ErrReferenced, got %v", err)
	}

	// The record must still be there.
	if r, _ := GetInventoryRecord(ctx, database, recordID); r == nil {
		t.Fatal("inventory record was removed by a refused registry delete")
	}

	DeleteInventoryRecord(ctx, database, recordID)
	if err := DeleteRegistryEntry(ctx, database, e.ID); err != nil {
		t.Fatalf("DeleteRegistryEntry after unreferencing: %v", err)
	}
}

func TestRegistryForeignKeyRestrict(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e, _ := CreateRegistryEntry(ctx, database, "INV-", "Projector", "", decimal.Zero)
	office, _ := CreateOffice(ctx, database, "Stores", "Logistics")
	user, _ := CreateUser(ctx, database, "janitor", "", "hash", model.RoleStaff, nil)
	CreateInventoryRecord(ctx, database, &model.InventoryRecord{
		UserID: user.ID, OfficeID: office.ID, RegistryID: e.ID, Quantity: 1, Year: 2024,
	})

	// Bypass the up-front check; the schema still refuses.
	_, err := database.ExecContext(ctx, `DELETE FROM registry_entries WHERE id = ?`, e.ID)
	mapped := mapError(err)
	if !errors.Is(mapped, ErrReferenced) {
		t.Fatalf("expected foreign key failure mapped to ErrReferenced, got %v", err)
	}
	if mapped.Error() != ErrReferenced.Error() {
		t.Errorf("driver detail leaked into message: %q", mapped.Error())
	}
}
