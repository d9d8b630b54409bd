package domain

// CartLine pairs a catalog entry with the quantity the operator wants to sell.
// Quantity is always within [1, Medicine.StockDispenser] as of the last
// catalog read.
type CartLine struct {
	Medicine Medicine `json:"medicine"`
	Quantity int      `json:"quantity"`
}

// Subtotal returns quantity * unit selling price for the line.
func (l CartLine) Subtotal() float64 {
	return float64(l.Quantity) * l.Medicine.SellingPrice
}

// Cart is the in-memory sale being assembled at a sell station. It is not
// safe for concurrent use; the owning use case serializes access.
type Cart struct {
	lines []CartLine
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add inserts a new line at quantity 1, or bumps an existing line by 1 while
// the quantity stays below the known dispenser stock. At the ceiling the call
// is a silent no-op.
func (c *Cart) Add(med Medicine) {
	for i := range c.lines {
		if c.lines[i].Medicine.ID == med.ID {
			if c.lines[i].Quantity < med.StockDispenser {
				c.lines[i].Quantity++
			}
			return
		}
	}
	if med.StockDispenser < 1 {
		return
	}
	c.lines = append(c.lines, CartLine{Medicine: med, Quantity: 1})
}

// UpdateQuantity sets the quantity for a line. Requests below 1 or above the
// known dispenser stock are rejected as no-ops, matching the sell-station
// quantity controls.
func (c *Cart) UpdateQuantity(medicineID string, quantity int) {
	if quantity < 1 {
		return
	}
	for i := range c.lines {
		if c.lines[i].Medicine.ID == medicineID {
			if quantity > c.lines[i].Medicine.StockDispenser {
				return
			}
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// Remove drops the line for the given medicine unconditionally.
func (c *Cart) Remove(medicineID string) {
	for i := range c.lines {
		if c.lines[i].Medicine.ID == medicineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Total recomputes the exact sum of quantity * selling price over all lines.
func (c *Cart) Total() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// Lines returns a copy of the current cart contents in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// SaleRequest builds the atomic line list submitted to the sell endpoint.
func (c *Cart) SaleRequest() SaleRequest {
	req := SaleRequest{Cart: make([]SaleLine, 0, len(c.lines))}
	for _, l := range c.lines {
		req.Cart = append(req.Cart, SaleLine{
			MedicineID: l.Medicine.ID,
			Quantity:   l.Quantity,
		})
	}
	return req
}
