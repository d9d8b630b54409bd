package transport

// LoginRequest carries the operator credentials.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// CartAddRequest adds one unit of a medicine to the cart.
type CartAddRequest struct {
	MedicineID string `json:"medicineId"`
}

// CartQuantityRequest sets the quantity for an existing cart line.
type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// NotificationReadRequest marks one notification as read.
type NotificationReadRequest struct {
	NotificationID string `json:"notificationId"`
}
