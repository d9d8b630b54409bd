package upstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pharmadesk/station/domain"
)

// tokenPayload is the wire shape of one credential.
type tokenPayload struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Tokens is the credential pair returned by login and refresh.
type Tokens struct {
	Access  tokenPayload  `json:"access"`
	Refresh *tokenPayload `json:"refresh,omitempty"`
}

// AccessToken converts the access credential to its domain form.
func (t Tokens) AccessToken() domain.Token {
	return domain.Token{Value: t.Access.Token, ExpiresAt: t.Access.Expires}
}

// RefreshTokenValue converts the optional refresh credential to its domain form.
func (t Tokens) RefreshTokenValue() *domain.Token {
	if t.Refresh == nil {
		return nil
	}
	return &domain.Token{Value: t.Refresh.Token, ExpiresAt: t.Refresh.Expires}
}

type userPayload struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	FCMToken string `json:"fcmToken,omitempty"`
}

// LoginResult is the user-plus-tokens payload returned by the login endpoint.
type LoginResult struct {
	User   userPayload `json:"user"`
	Tokens Tokens      `json:"tokens"`
}

// Operator converts the wire user into the domain identity.
func (r LoginResult) Operator() domain.Operator {
	return domain.Operator{
		ID:       r.User.ID,
		Email:    r.User.Email,
		FullName: r.User.FullName,
		Role:     r.User.Role,
		FCMToken: r.User.FCMToken,
	}
}

// Login authenticates the operator against the pharmacy API.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	body := map[string]interface{}{
		"email":      email,
		"password":   password,
		"rememberMe": rememberMe,
	}
	var result LoginResult
	if err := c.doJSON(ctx, "POST", "/auth/login", "", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var result struct {
		Tokens Tokens `json:"tokens"`
	}
	if err := c.doJSON(ctx, "POST", "/auth/refresh-token", "", body, &result); err != nil {
		return nil, err
	}
	return &result.Tokens, nil
}

type medicinePayload struct {
	ID                 string  `json:"_id"`
	BrandName          string  `json:"brandName"`
	GenericName        string  `json:"genericName"`
	DosageForm         string  `json:"dosageForm"`
	Strength           string  `json:"strength"`
	BatchNumber        string  `json:"batchNumber"`
	StockDispenser     int     `json:"stockDispenser"`
	SellingPrice       float64 `json:"sellingPrice"`
	ReorderThreshold   int     `json:"reorderThreshold"`
	PrescriptionStatus string  `json:"prescriptionStatus"`
	Status             string  `json:"status"`
	ExpiryDate         string  `json:"expiryDate"`
}

func (p medicinePayload) toDomain() domain.Medicine {
	med := domain.Medicine{
		ID:                 p.ID,
		BrandName:          p.BrandName,
		GenericName:        p.GenericName,
		DosageForm:         p.DosageForm,
		Strength:           p.Strength,
		BatchNumber:        p.BatchNumber,
		StockDispenser:     p.StockDispenser,
		SellingPrice:       p.SellingPrice,
		ReorderThreshold:   p.ReorderThreshold,
		PrescriptionStatus: p.PrescriptionStatus,
		Status:             domain.StockStatus(p.Status),
	}
	if p.ExpiryDate != "" {
		if parsed, err := time.Parse(time.RFC3339, p.ExpiryDate); err == nil {
			med.ExpiryDate = parsed
		}
	}
	return med
}

// DispenserCatalog fetches the medicines currently available at the dispenser.
func (c *Client) DispenserCatalog(ctx context.Context, accessToken string) ([]domain.Medicine, error) {
	var result struct {
		Data []medicinePayload `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", "/medicines/get/dispenser", accessToken, nil, &result); err != nil {
		return nil, err
	}
	medicines := make([]domain.Medicine, 0, len(result.Data))
	for _, p := range result.Data {
		medicines = append(medicines, p.toDomain())
	}
	return medicines, nil
}

// Sell submits the full cart as one atomic transaction and returns the
// per-medicine stock outcomes.
func (c *Client) Sell(ctx context.Context, accessToken string, req domain.SaleRequest) ([]domain.SaleResultLine, error) {
	var result struct {
		Data []domain.SaleResultLine `json:"data"`
	}
	if err := c.doJSON(ctx, "POST", "/sell", accessToken, req, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// CreateNotification persists a notification record for the operator.
func (c *Client) CreateNotification(ctx context.Context, accessToken string, alert domain.StockAlert) error {
	body := map[string]interface{}{
		"title":   alert.Title(),
		"message": alertMessage(alert),
		"link":    "/dashboard/stock",
	}
	return c.doJSON(ctx, "POST", "/notifications", accessToken, body, nil)
}

// DispatchPush sends a push notification to the operator's registered device.
func (c *Client) DispatchPush(ctx context.Context, accessToken string, alert domain.StockAlert) error {
	if alert.FCMToken == "" {
		return nil
	}
	body := map[string]interface{}{
		"token":   alert.FCMToken,
		"title":   alert.Title(),
		"message": alertMessage(alert),
		"link":    "/dashboard/stock",
	}
	return c.doJSON(ctx, "POST", "/notifications/push", accessToken, body, nil)
}

type notificationPayload struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifications lists the operator's persisted notifications.
func (c *Client) Notifications(ctx context.Context, accessToken string) ([]domain.Notification, error) {
	var result struct {
		Data struct {
			Notifications []notificationPayload `json:"notifications"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", "/notifications", accessToken, nil, &result); err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(result.Data.Notifications))
	for _, n := range result.Data.Notifications {
		out = append(out, domain.Notification{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out, nil
}

// MarkNotificationRead flags one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, accessToken, notificationID string) error {
	body := map[string]string{"notificationId": notificationID}
	return c.doJSON(ctx, "POST", "/notifications/read", accessToken, body, nil)
}

// ReportsSummary fetches the sales reporting payload. The gateway passes it
// through untouched; shaping it is the dashboard's job.
func (c *Client) ReportsSummary(ctx context.Context, accessToken string) (json.RawMessage, error) {
	var result struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", "/reports/summary", accessToken, nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func alertMessage(alert domain.StockAlert) string {
	switch alert.Status {
	case domain.StatusOutOfStock:
		return alert.BrandName + " is out of dispenser stock."
	case domain.StatusExpired:
		return alert.BrandName + " has expired stock in the dispenser."
	default:
		return alert.BrandName + " is running low in the dispenser."
	}
}
