package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/popis/internal/model"
)

const userColumns = `u.id, u.username, COALESCE(u.email, ''), u.password_hash, u.role,
	u.organization_id, COALESCE(o.name, ''), u.profile_image IS NOT NULL, u.created_at
	FROM users u LEFT JOIN organizations o ON o.id = u.organization_id`

func scanUser(s scanner) (*model.User, error) {
	u := &model.User{}
	var orgID sql.NullInt64
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&orgID, &u.OrganizationName, &u.HasProfileImage, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if orgID.Valid {
		u.OrganizationID = &orgID.Int64
	}
	return u, nil
}

// getUserWhere loads a single user plus their office assignment.
func getUserWhere(ctx context.Context, db DBTX, where string, arg any) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u.OfficeIDs, err = userOfficeIDs(ctx, db, u.ID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user. An empty email is stored as NULL.
func CreateUser(ctx context.Context, db DBTX, username, email, passwordHash, role string, organizationID *int64) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, organization_id) VALUES (?, ?, ?, ?, ?)`,
		username, nullString(email), passwordHash, role, organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db DBTX, id int64) (*model.User, error) {
	u, err := getUserWhere(ctx, db, `u.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username.
func GetUserByUsername(ctx context.Context, db DBTX, username string) (*model.User, error) {
	u, err := getUserWhere(ctx, db, `u.username = ?`, username)
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// GetUserByLogin resolves a login name, which may be a username or an email.
func GetUserByLogin(ctx context.Context, db DBTX, login string) (*model.User, error) {
	u, err := GetUserByUsername(ctx, db, login)
	if err != nil || u != nil {
		return u, err
	}

	u, err = getUserWhere(ctx, db, `u.email = ?`, login)
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all users with their office assignments.
func ListUsers(ctx context.Context, db DBTX) ([]model.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	assignments, err := allUserOffices(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].OfficeIDs = assignments[users[i].ID]
		if users[i].OfficeIDs == nil {
			users[i].OfficeIDs = []int64{}
		}
	}
	return users, nil
}

// CountUsers returns the number of users.
func CountUsers(ctx context.Context, db DBTX) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// SetUserRole changes a user's role. Moving a user away from staff clears
// their office assignment in the same transaction; cleared reports whether
// any assignment was removed.
func SetUserRole(ctx context.Context, db *sql.DB, id int64, role string) (cleared bool, err error) {
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
		if err != nil {
			return fmt.Errorf("updating user role: %w", mapError(err))
		}
		if err := checkAffected(result); err != nil {
			return err
		}

		if role == model.RoleStaff {
			return nil
		}

		result, err = tx.ExecContext(ctx, `DELETE FROM user_offices WHERE user_id = ?`, id)
		if err != nil {
			return fmt.Errorf("clearing user offices: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting affected rows: %w", err)
		}
		cleared = n > 0
		return nil
	})
	return cleared, err
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db DBTX, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return checkAffected(result)
}

// DeleteUser deletes a user. Their inventory records and office
// assignments go with them.
func DeleteUser(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", mapError(err))
	}
	return checkAffected(result)
}

// SetProfileImage stores a processed profile image.
func SetProfileImage(ctx context.Context, db DBTX, id int64, data []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET profile_image = ?, profile_image_mime = ? WHERE id = ?`,
		data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("updating profile image: %w", err)
	}
	return checkAffected(result)
}

// GetProfileImage returns a user's profile image and its MIME type. Data is
// nil when the user has none.
func GetProfileImage(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT profile_image, profile_image_mime FROM users WHERE id = ?`, id,
	).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting profile image: %w", err)
	}
	return data, mime.String, nil
}
