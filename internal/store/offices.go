package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/popis/internal/model"
)

const officeColumns = `id, name, department, created_at`

func scanOffice(s scanner) (*model.Office, error) {
	o := &model.Office{}
	if err := s.Scan(&o.ID, &o.Name, &o.Department, &o.CreatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOffice creates a new office.
func CreateOffice(ctx context.Context, db DBTX, name, department string) (*model.Office, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO offices (name, department) VALUES (?, ?)`,
		name, department,
	)
	if err != nil {
		return nil, fmt.Errorf("creating office: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting office id: %w", err)
	}

	return GetOffice(ctx, db, id)
}

// GetOffice returns an office by ID.
func GetOffice(ctx context.Context, db DBTX, id int64) (*model.Office, error) {
	o, err := scanOffice(db.QueryRowContext(ctx,
		`SELECT `+officeColumns+` FROM offices WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting office: %w", err)
	}
	return o, nil
}

// ListOffices returns offices ordered by department and name. A non-nil
// ids slice restricts the result to those offices.
func ListOffices(ctx context.Context, db DBTX, ids []int64) ([]model.Office, error) {
	query := `SELECT ` + officeColumns + ` FROM offices`
	var args []any
	if ids != nil {
		if len(ids) == 0 {
			return []model.Office{}, nil
		}
		query += ` WHERE id IN (` + placeholders(len(ids)) + `)`
		args = int64Args(ids)
	}
	query += ` ORDER BY department, name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing offices: %w", err)
	}
	defer rows.Close()

	offices := []model.Office{}
	for rows.Next() {
		o, err := scanOffice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning office: %w", err)
		}
		offices = append(offices, *o)
	}
	return offices, rows.Err()
}

// UpdateOffice updates an office's name and department.
func UpdateOffice(ctx context.Context, db DBTX, id int64, name, department string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE offices SET name = ?, department = ? WHERE id = ?`,
		name, department, id,
	)
	if err != nil {
		return fmt.Errorf("updating office: %w", mapError(err))
	}
	return checkAffected(result)
}

// DeleteOffice deletes an office together with its inventory records and
// staff assignments.
func DeleteOffice(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM offices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting office: %w", mapError(err))
	}
	return checkAffected(result)
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := range n {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
