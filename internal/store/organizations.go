package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/popis/internal/model"
)

// CreateOrganization creates a new organization.
func CreateOrganization(ctx context.Context, db DBTX, name, description string) (*model.Organization, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO organizations (name, description) VALUES (?, ?)`,
		name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating organization: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting organization id: %w", err)
	}

	return GetOrganization(ctx, db, id)
}

// GetOrganization returns an organization by ID.
func GetOrganization(ctx context.Context, db DBTX, id int64) (*model.Organization, error) {
	o := &model.Organization{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM organizations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	return o, nil
}

// GetOrCreateOrganization returns the organization with the given name,
// creating it first when missing. Names compare case-insensitively.
func GetOrCreateOrganization(ctx context.Context, db DBTX, name string) (*model.Organization, error) {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO organizations (name) VALUES (?)`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	o := &model.Organization{}
	err = db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM organizations WHERE name = ?`, name,
	).Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting organization by name: %w", err)
	}
	return o, nil
}

// ListOrganizations returns all organizations ordered by name.
func ListOrganizations(ctx context.Context, db DBTX) ([]model.Organization, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM organizations ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	defer rows.Close()

	orgs := []model.Organization{}
	for rows.Next() {
		var o model.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}
