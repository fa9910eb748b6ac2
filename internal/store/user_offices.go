package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/popis/internal/model"
)

// userOfficeIDs returns the offices assigned to one user.
func userOfficeIDs(ctx context.Context, db DBTX, userID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT office_id FROM user_offices WHERE user_id = ? ORDER BY office_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user offices: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user office: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// allUserOffices returns every assignment keyed by user ID.
func allUserOffices(ctx context.Context, db DBTX) (map[int64][]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id, office_id FROM user_offices ORDER BY user_id, office_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user offices: %w", err)
	}
	defer rows.Close()

	m := make(map[int64][]int64)
	for rows.Next() {
		var userID, officeID int64
		if err := rows.Scan(&userID, &officeID); err != nil {
			return nil, fmt.Errorf("scanning user office: %w", err)
		}
		m[userID] = append(m[userID], officeID)
	}
	return m, rows.Err()
}

// ListUserOffices returns the offices assigned to a user.
func ListUserOffices(ctx context.Context, db DBTX, userID int64) ([]model.Office, error) {
	ids, err := userOfficeIDs(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	return ListOffices(ctx, db, ids)
}

// AddUserOffices appends offices to a staff user's assignment. Offices that
// are already assigned are left alone.
func AddUserOffices(ctx context.Context, db *sql.DB, userID int64, officeIDs []int64) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := checkAssignable(ctx, tx, userID, officeIDs); err != nil {
			return err
		}
		return insertUserOffices(ctx, tx, userID, officeIDs)
	})
}

// ReplaceUserOffices sets a staff user's assignment to exactly officeIDs.
func ReplaceUserOffices(ctx context.Context, db *sql.DB, userID int64, officeIDs []int64) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := checkAssignable(ctx, tx, userID, officeIDs); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_offices WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clearing user offices: %w", err)
		}
		return insertUserOffices(ctx, tx, userID, officeIDs)
	})
}

// RemoveUserOffices removes offices from a user's assignment.
func RemoveUserOffices(ctx context.Context, db *sql.DB, userID int64, officeIDs []int64) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, userID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking user: %w", err)
		}
		if !exists {
			return fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}

		for _, id := range officeIDs {
			_, err := tx.ExecContext(ctx,
				`DELETE FROM user_offices WHERE user_id = ? AND office_id = ?`, userID, id,
			)
			if err != nil {
				return fmt.Errorf("removing user office: %w", err)
			}
		}
		return nil
	})
}

// checkAssignable verifies that the user exists and is staff, and that all
// offices exist.
func checkAssignable(ctx context.Context, tx *sql.Tx, userID int64, officeIDs []int64) error {
	var role string
	err := tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if role != model.RoleStaff {
		return &model.ValidationError{Field: "offices", Message: "offices can only be assigned to staff users"}
	}

	for _, id := range officeIDs {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM offices WHERE id = ?)`, id,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking office: %w", err)
		}
		if !exists {
			return fmt.Errorf("office %d: %w", id, ErrNotFound)
		}
	}
	return nil
}

func insertUserOffices(ctx context.Context, tx *sql.Tx, userID int64, officeIDs []int64) error {
	for _, id := range officeIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_offices (user_id, office_id) VALUES (?, ?)`, userID, id,
		)
		if err != nil {
			return fmt.Errorf("assigning office: %w", mapError(err))
		}
	}
	return nil
}
