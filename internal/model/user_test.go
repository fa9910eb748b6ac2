package model

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidRole(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{RoleSuperAdmin, true},
		{RoleAdmin, true},
		{RoleStaff, true},
		{"viewer", false},
		{"", false},
		{"Admin", false},
	}

	for _, tt := range tests {
		if got := ValidRole(tt.role); got != tt.expected {
			t.Errorf("ValidRole(%q) = %v, want %v", tt.role, got, tt.expected)
		}
	}
}

func TestIsElevated(t *testing.T) {
	if !IsElevated(RoleAdmin) || !IsElevated(RoleSuperAdmin) {
		t.Error("expected admin and super_admin to be elevated")
	}
	if IsElevated(RoleStaff) || IsElevated("") {
		t.Error("expected staff and unknown roles not to be elevated")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	for _, bad := range []string{"", "  ", "has space", "a@b.c"} {
		if ValidateUsername(bad) == nil {
			t.Errorf("expected error for username %q", bad)
		}
	}
	if err := ValidateUsername("janitor1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewStockID(t *testing.T) {
	id := NewStockID(DefaultStockPrefix)
	if !strings.HasPrefix(id, DefaultStockPrefix) {
		t.Fatalf("expected prefix %q in %q", DefaultStockPrefix, id)
	}
	suffix := strings.TrimPrefix(id, DefaultStockPrefix)
	if len(suffix) != 8 {
		t.Fatalf("expected 8 characters after prefix, got %q", suffix)
	}
	if strings.Trim(suffix, "0123456789ABCDEF") != "" {
		t.Errorf("expected uppercase hex suffix, got %q", suffix)
	}

	if NewStockID("X-") == NewStockID("X-") {
		t.Error("expected two generated ids to differ")
	}
}

func TestNormalizeItemName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"laptop", "Laptop"},
		{"LAPTOP", "Laptop"},
		{"  office   chair ", "Office Chair"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeItemName(tt.in); got != tt.want {
			t.Errorf("NormalizeItemName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if !SameItemName("projector", "PROJECTOR ") {
		t.Error("expected case variants to be the same item")
	}
}

func TestValidateRegistryEntry(t *testing.T) {
	if err := ValidateRegistryEntry("Laptop", decimal.RequireFromString("1200.50")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if ValidateRegistryEntry(" ", decimal.Zero) == nil {
		t.Error("expected error for empty name")
	}
	if ValidateRegistryEntry("Laptop", decimal.NewFromInt(-1)) == nil {
		t.Error("expected error for negative unit cost")
	}
}

func TestValidateQuantity(t *testing.T) {
	for _, q := range []int{0, -1, -100} {
		if ValidateQuantity(q) == nil {
			t.Errorf("expected error for quantity %d", q)
		}
	}
	for _, q := range []int{1, 5, 1000} {
		if err := ValidateQuantity(q); err != nil {
			t.Errorf("unexpected error for quantity %d: %v", q, err)
		}
	}
}
