package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/popis/internal/model"
)

const inventoryColumns = `inv.id, inv.user_id, inv.office_id, inv.registry_id, inv.quantity,
	inv.remarks, inv.description, inv.year, inv.created_at, inv.updated_at,
	u.username, o.name, o.department, r.stock_id, r.name, r.description
	FROM inventory_records inv
	JOIN users u ON u.id = inv.user_id
	JOIN offices o ON o.id = inv.office_id
	JOIN registry_entries r ON r.id = inv.registry_id`

func scanInventoryRecord(s scanner) (*model.InventoryRecord, error) {
	r := &model.InventoryRecord{}
	err := s.Scan(&r.ID, &r.UserID, &r.OfficeID, &r.RegistryID, &r.Quantity,
		&r.Remarks, &r.Description, &r.Year, &r.CreatedAt, &r.UpdatedAt,
		&r.Username, &r.OfficeName, &r.Department, &r.StockID, &r.ItemName, &r.ItemDescription)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// InventoryFilter narrows ListInventory. A nil OfficeIDs means every
// office; an empty non-nil slice matches nothing. Zero Year and UserID are
// ignored. A zero Limit returns every matching record.
type InventoryFilter struct {
	OfficeIDs []int64
	Year      int
	UserID    int64
	Limit     int
	Offset    int
}

// empty reports whether the filter can match nothing.
func (f InventoryFilter) empty() bool {
	return f.OfficeIDs != nil && len(f.OfficeIDs) == 0
}

func (f InventoryFilter) where() (string, []any) {
	var where []string
	var args []any
	if f.OfficeIDs != nil {
		where = append(where, `inv.office_id IN (`+placeholders(len(f.OfficeIDs))+`)`)
		args = append(args, int64Args(f.OfficeIDs)...)
	}
	if f.Year != 0 {
		where = append(where, `inv.year = ?`)
		args = append(args, f.Year)
	}
	if f.UserID != 0 {
		where = append(where, `inv.user_id = ?`)
		args = append(args, f.UserID)
	}
	if len(where) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(where, ` AND `), args
}

// ListInventory returns inventory records matching the filter, ordered by
// office then item name.
func ListInventory(ctx context.Context, db DBTX, f InventoryFilter) ([]model.InventoryRecord, error) {
	records := []model.InventoryRecord{}
	if f.empty() {
		return records, nil
	}

	where, args := f.where()
	query := `SELECT ` + inventoryColumns + where + ` ORDER BY o.name, r.name, inv.year, inv.id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanInventoryRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning inventory record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// CountInventory counts the records matching the filter, ignoring Limit
// and Offset.
func CountInventory(ctx context.Context, db DBTX, f InventoryFilter) (int, error) {
	if f.empty() {
		return 0, nil
	}

	where, args := f.where()
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_records inv`+where, args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting inventory: %w", err)
	}
	return n, nil
}

// GetInventoryRecord returns an inventory record by ID.
func GetInventoryRecord(ctx context.Context, db DBTX, id int64) (*model.InventoryRecord, error) {
	r, err := scanInventoryRecord(db.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` WHERE inv.id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory record: %w", err)
	}
	return r, nil
}

// CreateInventoryRecord inserts a record. A duplicate (user, office,
// entry, year) is ErrConflict.
func CreateInventoryRecord(ctx context.Context, db DBTX, r *model.InventoryRecord) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO inventory_records (user_id, office_id, registry_id, quantity, remarks, description, year)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.OfficeID, r.RegistryID, r.Quantity, r.Remarks, r.Description, r.Year,
	)
	if err != nil {
		return 0, fmt.Errorf("creating inventory record: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting inventory record id: %w", err)
	}
	return id, nil
}

// UpdateInventoryRecord overwrites the mutable fields of a record.
func UpdateInventoryRecord(ctx context.Context, db DBTX, id int64, quantity int, remarks, description string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE inventory_records
		 SET quantity = ?, remarks = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, remarks, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating inventory record: %w", mapError(err))
	}
	return checkAffected(result)
}

// DeleteInventoryRecord deletes a record.
func DeleteInventoryRecord(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM inventory_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting inventory record: %w", err)
	}
	return checkAffected(result)
}

// InventoryRecordIDs maps registry entry ID to record ID for everything a
// user recorded in an office for a year.
func InventoryRecordIDs(ctx context.Context, db DBTX, userID, officeID int64, year int) (map[int64]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT registry_id, id FROM inventory_records
		 WHERE user_id = ? AND office_id = ? AND year = ?`,
		userID, officeID, year,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inventory keys: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]int64)
	for rows.Next() {
		var registryID, id int64
		if err := rows.Scan(&registryID, &id); err != nil {
			return nil, fmt.Errorf("scanning inventory key: %w", err)
		}
		ids[registryID] = id
	}
	return ids, rows.Err()
}

// OfficeTotals sums quantities per (registry entry, office) for a year,
// ordered by item name, department and office name.
func OfficeTotals(ctx context.Context, db DBTX, year int) ([]model.OfficeTotal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.stock_id, r.name, r.description,
		        o.id, o.name, o.department, SUM(inv.quantity)
		 FROM inventory_records inv
		 JOIN registry_entries r ON r.id = inv.registry_id
		 JOIN offices o ON o.id = inv.office_id
		 WHERE inv.year = ?
		 GROUP BY r.id, o.id
		 ORDER BY r.name, o.department, o.name`, year,
	)
	if err != nil {
		return nil, fmt.Errorf("summing inventory: %w", err)
	}
	defer rows.Close()

	totals := []model.OfficeTotal{}
	for rows.Next() {
		var t model.OfficeTotal
		err := rows.Scan(&t.RegistryID, &t.StockID, &t.ItemName, &t.ItemDescription,
			&t.OfficeID, &t.OfficeName, &t.Department, &t.Quantity)
		if err != nil {
			return nil, fmt.Errorf("scanning inventory total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
