package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/popis/internal/model"
)

// stockIDAttempts bounds retries when a generated stock ID collides.
const stockIDAttempts = 5

const registryColumns = `id, stock_id, name, description, unit_cost, created_at, updated_at`

func scanRegistryEntry(s scanner) (*model.RegistryEntry, error) {
	e := &model.RegistryEntry{}
	err := s.Scan(&e.ID, &e.StockID, &e.Name, &e.Description, &e.UnitCost, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func getRegistryEntryWhere(ctx context.Context, db DBTX, where string, arg any) (*model.RegistryEntry, error) {
	e, err := scanRegistryEntry(db.QueryRowContext(ctx,
		`SELECT `+registryColumns+` FROM registry_entries WHERE `+where, arg,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// CreateRegistryEntry creates a registry entry with a freshly generated
// stock ID. The name is normalized first; a name that already exists is
// ErrConflict.
func CreateRegistryEntry(ctx context.Context, db DBTX, prefix, name, description string, unitCost decimal.Decimal) (*model.RegistryEntry, error) {
	name = model.NormalizeItemName(name)

	for range stockIDAttempts {
		result, err := db.ExecContext(ctx,
			`INSERT INTO registry_entries (stock_id, name, description, unit_cost) VALUES (?, ?, ?, ?)`,
			model.NewStockID(prefix), name, description, unitCost,
		)
		if err == nil {
			id, err := result.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("getting registry entry id: %w", err)
			}
			return GetRegistryEntry(ctx, db, id)
		}

		err = mapError(err)
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("creating registry entry: %w", err)
		}

		// Either the name is taken or the stock ID collided.
		existing, lookupErr := GetRegistryEntryByName(ctx, db, name)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return nil, fmt.Errorf("creating registry entry %q: %w", name, ErrConflict)
		}
	}
	return nil, fmt.Errorf("creating registry entry: no free stock id after %d attempts", stockIDAttempts)
}

// GetRegistryEntry returns a registry entry by ID.
func GetRegistryEntry(ctx context.Context, db DBTX, id int64) (*model.RegistryEntry, error) {
	e, err := getRegistryEntryWhere(ctx, db, `id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting registry entry: %w", err)
	}
	return e, nil
}

// GetRegistryEntryByStockID returns a registry entry by its stock ID.
func GetRegistryEntryByStockID(ctx context.Context, db DBTX, stockID string) (*model.RegistryEntry, error) {
	e, err := getRegistryEntryWhere(ctx, db, `stock_id = ?`, stockID)
	if err != nil {
		return nil, fmt.Errorf("getting registry entry by stock id: %w", err)
	}
	return e, nil
}

// GetRegistryEntryByName returns a registry entry by name, ignoring case.
func GetRegistryEntryByName(ctx context.Context, db DBTX, name string) (*model.RegistryEntry, error) {
	e, err := getRegistryEntryWhere(ctx, db, `name = ?`, model.NormalizeItemName(name))
	if err != nil {
		return nil, fmt.Errorf("getting registry entry by name: %w", err)
	}
	return e, nil
}

// ListRegistry returns all registry entries ordered by name.
func ListRegistry(ctx context.Context, db DBTX) ([]model.RegistryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+registryColumns+` FROM registry_entries ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing registry: %w", err)
	}
	defer rows.Close()

	entries := []model.RegistryEntry{}
	for rows.Next() {
		e, err := scanRegistryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning registry entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// UpdateRegistryEntry updates the editable fields of an entry. The stock
// ID never changes.
func UpdateRegistryEntry(ctx context.Context, db DBTX, id int64, name, description string, unitCost decimal.Decimal) error {
	result, err := db.ExecContext(ctx,
		`UPDATE registry_entries SET name = ?, description = ?, unit_cost = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		model.NormalizeItemName(name), description, unitCost, id,
	)
	if err != nil {
		return fmt.Errorf("updating registry entry: %w", mapError(err))
	}
	return checkAffected(result)
}

// UpsertRegistryEntry creates an entry by name or, when the name already
// exists, replaces its description if one is given.
func UpsertRegistryEntry(ctx context.Context, db DBTX, prefix, name, description string) (created bool, err error) {
	existing, err := GetRegistryEntryByName(ctx, db, name)
	if err != nil {
		return false, err
	}

	if existing == nil {
		if _, err := CreateRegistryEntry(ctx, db, prefix, name, description, decimal.Zero); err != nil {
			return false, err
		}
		return true, nil
	}

	if description != "" {
		_, err := db.ExecContext(ctx,
			`UPDATE registry_entries SET description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			description, existing.ID,
		)
		if err != nil {
			return false, fmt.Errorf("updating registry entry: %w", err)
		}
	}
	return false, nil
}

// DeleteRegistryEntry deletes an entry. Entries still referenced by any
// inventory record are refused with ErrReferenced.
func DeleteRegistryEntry(ctx context.Context, db DBTX, id int64) error {
	var refs int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_records WHERE registry_id = ?`, id,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("checking registry references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("registry entry used by %d inventory records: %w", refs, ErrReferenced)
	}

	result, err := db.ExecContext(ctx, `DELETE FROM registry_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting registry entry: %w", mapError(err))
	}
	return checkAffected(result)
}
