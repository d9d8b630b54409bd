package domain

import "time"

// StockStatus mirrors the status values reported by the pharmacy API.
type StockStatus string

const (
	StatusAvailable  StockStatus = "available"
	StatusLowStock   StockStatus = "low-stock"
	StatusOutOfStock StockStatus = "out-of-stock"
	StatusExpired    StockStatus = "expired"
)

// NeedsAlert reports whether the status should trigger an operator notification.
func (s StockStatus) NeedsAlert() bool {
	switch s {
	case StatusLowStock, StatusOutOfStock, StatusExpired:
		return true
	}
	return false
}

// Medicine is a dispenser catalog entry. The pharmacy API owns the record;
// the gateway only caches it for the sell station.
type Medicine struct {
	ID                 string      `json:"id"`
	BrandName          string      `json:"brand_name"`
	GenericName        string      `json:"generic_name"`
	DosageForm         string      `json:"dosage_form,omitempty"`
	Strength           string      `json:"strength,omitempty"`
	BatchNumber        string      `json:"batch_number,omitempty"`
	StockDispenser     int         `json:"stock_dispenser"`
	SellingPrice       float64     `json:"selling_price"`
	ReorderThreshold   int         `json:"reorder_threshold,omitempty"`
	PrescriptionStatus string      `json:"prescription_status,omitempty"`
	Status             StockStatus `json:"status"`
	ExpiryDate         time.Time   `json:"expiry_date,omitempty"`
}
