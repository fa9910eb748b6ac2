package model

import (
	"fmt"
	"strings"
	"time"
)

// User represents an authenticated account. Only staff carry office assignments.
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email,omitempty"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	OrganizationID   *int64    `json:"organization_id,omitempty"`
	OrganizationName string    `json:"organization,omitempty"`
	HasProfileImage  bool      `json:"has_profile_image"`
	OfficeIDs        []int64   `json:"assigned_offices"`
	CreatedAt        time.Time `json:"created_at"`
}

// Roles.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// IsElevated reports whether role bypasses office scoping.
func IsElevated(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// ValidatePassword checks password strength rules.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength),
		}
	}
	return nil
}

// ValidateUsername checks that a username is usable as a login name.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "username", Message: "username required"}
	}
	if strings.ContainsAny(username, " \t\n@") {
		return &ValidationError{Field: "username", Message: "username must not contain spaces or '@'"}
	}
	return nil
}

// DisplayOrganization returns the organization name used in workbook headers.
func (u *User) DisplayOrganization() string {
	if u == nil || u.OrganizationName == "" {
		return "Unknown Organization"
	}
	return u.OrganizationName
}
