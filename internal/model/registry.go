package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultStockPrefix prefixes generated stock identifiers.
const DefaultStockPrefix = "INV-"

// RegistryEntry is a catalog item definition referenced by inventory records.
type RegistryEntry struct {
	ID          int64           `json:"id"`
	StockID     string          `json:"stock_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewStockID returns prefix followed by 8 random uppercase hex characters.
// Collisions are possible and must be handled by the caller.
func NewStockID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(hex[:8])
}

// NormalizeItemName trims, collapses inner whitespace and title-cases a
// human-entered item name so case variants map to one registry entry.
func NormalizeItemName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	// A Caser is stateful, so one is built per call.
	return cases.Title(language.Und).String(name)
}

// SameItemName compares two item names after normalization.
func SameItemName(a, b string) bool {
	return NormalizeItemName(a) == NormalizeItemName(b)
}

// ValidateRegistryEntry checks the user-editable fields of an entry.
func ValidateRegistryEntry(name string, unitCost decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "name required"}
	}
	if unitCost.IsNegative() {
		return &ValidationError{Field: "unit_cost", Message: "unit cost must not be negative"}
	}
	return nil
}
