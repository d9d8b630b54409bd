package domain

// SaleLine is one {medicine, quantity} pair of a sale submission.
type SaleLine struct {
	MedicineID string `json:"medicineId"`
	Quantity   int    `json:"quantity"`
}

// SaleRequest is the full cart submitted atomically to the sell endpoint.
type SaleRequest struct {
	Cart []SaleLine `json:"cart"`
}

// SaleResultLine is the per-medicine outcome returned by the sell endpoint,
// used to reconcile the local catalog cache.
type SaleResultLine struct {
	MedicineID        string      `json:"medicineId"`
	NewDispenserStock int         `json:"newDispenserStock"`
	Status            StockStatus `json:"status"`
}

// SaleResult is the outcome of a completed sale.
type SaleResult struct {
	Lines []SaleResultLine `json:"lines"`
	Total float64          `json:"total"`
}
