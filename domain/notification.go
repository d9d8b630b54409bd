package domain

import "time"

// Notification is a persisted operator notification record owned by the
// pharmacy API.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// StockAlert describes a low-stock / out-of-stock / expired condition that
// should reach the operator as both a push notification and a persisted
// record. Alerts are dispatched as post-commit effects, never inline with
// the sale that produced them.
type StockAlert struct {
	MedicineID string      `json:"medicine_id"`
	BrandName  string      `json:"brand_name"`
	Status     StockStatus `json:"status"`
	NewStock   int         `json:"new_stock"`
	FCMToken   string      `json:"fcm_token,omitempty"`
}

// Title renders the alert headline shown to the operator.
func (a StockAlert) Title() string {
	switch a.Status {
	case StatusOutOfStock:
		return "Out of stock: " + a.BrandName
	case StatusExpired:
		return "Expired stock: " + a.BrandName
	default:
		return "Low stock: " + a.BrandName
	}
}
