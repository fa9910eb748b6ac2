package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/popis/internal/db"
)

func TestGetOrCreateOrganization(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetOrCreateOrganization(ctx, database, "Acme")
	if err != nil {
		t.Fatalf("GetOrCreateOrganization: %v", err)
	}

	second, err := GetOrCreateOrganization(ctx, database, "ACME")
	if err != nil {
		t.Fatalf("GetOrCreateOrganization: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same organization, got %d and %d", first.ID, second.ID)
	}

	orgs, _ := ListOrganizations(ctx, database)
	if len(orgs) != 1 {
		t.Errorf("expected 1 organization, got %d", len(orgs))
	}
}

func TestCreateOrganizationDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateOrganization(ctx, database, "Acme", "widgets"); err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if _, err := CreateOrganization(ctx, database, "acme", ""); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestOffices(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	stores, err := CreateOffice(ctx, database, "Stores", "Logistics")
	if err != nil {
		t.Fatalf("CreateOffice: %v", err)
	}
	registry, _ := CreateOffice(ctx, database, "Registry", "Admin")

	if _, err := CreateOffice(ctx, database, "stores", "Other"); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate office name, got %v", err)
	}

	all, _ := ListOffices(ctx, database, nil)
	if len(all) != 2 {
		t.Fatalf("expected 2 offices, got %d", len(all))
	}
	// Ordered by department.
	if all[0].ID != registry.ID {
		t.Errorf("expected Admin department first, got %q", all[0].Department)
	}

	some, _ := ListOffices(ctx, database, []int64{stores.ID})
	if len(some) != 1 || some[0].ID != stores.ID {
		t.Errorf("expected only Stores, got %v", some)
	}

	none, _ := ListOffices(ctx, database, []int64{})
	if len(none) != 0 {
		t.Errorf("expected no offices for empty filter, got %v", none)
	}

	if err := UpdateOffice(ctx, database, stores.ID, "Main Stores", "Logistics"); err != nil {
		t.Fatalf("UpdateOffice: %v", err)
	}
	got, _ := GetOffice(ctx, database, stores.ID)
	if got.Name != "Main Stores" {
		t.Errorf("expected renamed office, got %q", got.Name)
	}

	if err := DeleteOffice(ctx, database, stores.ID); err != nil {
		t.Fatalf("DeleteOffice: %v", err)
	}
	if err := DeleteOffice(ctx, database, stores.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := UpdateOffice(ctx, database, stores.ID, "x", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
