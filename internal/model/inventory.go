package model

import "time"

// InventoryRecord is a quantity of a registry entry held by an office in a year.
// (UserID, OfficeID, RegistryID, Year) is unique.
type InventoryRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	OfficeID    int64     `json:"office_id"`
	RegistryID  int64     `json:"registry_id"`
	Quantity    int       `json:"quantity"`
	Remarks     string    `json:"remarks"`
	Description string    `json:"description"`
	Year        int       `json:"year"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	Username        string `json:"username,omitempty"`
	OfficeName      string `json:"office_name,omitempty"`
	Department      string `json:"department,omitempty"`
	StockID         string `json:"stock_id,omitempty"`
	ItemName        string `json:"item_name,omitempty"`
	ItemDescription string `json:"item_description,omitempty"`
}

// ValidateQuantity rejects quantities below one.
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return &ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}
	return nil
}

// ValidateYear rejects implausible year tags.
func ValidateYear(year int) error {
	if year < 1900 || year > 9999 {
		return &ValidationError{Field: "year", Message: "year must be a four-digit year"}
	}
	return nil
}

// OfficeTotal is the summed quantity of one registry entry in one office.
type OfficeTotal struct {
	RegistryID      int64
	StockID         string
	ItemName        string
	ItemDescription string
	OfficeID        int64
	OfficeName      string
	Department      string
	Quantity        int
}
