package dashboard

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
)

// API is the slice of the pharmacy client the dashboard proxy needs.
type API interface {
	Notifications(ctx context.Context, accessToken string) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, accessToken, notificationID string) error
	ReportsSummary(ctx context.Context, accessToken string) (json.RawMessage, error)
}

// UseCase passes dashboard reads through to the pharmacy API. The gateway
// adds nothing here beyond credentials; the payloads are the dashboard's
// concern.
type UseCase struct {
	api    API
	logger *zap.Logger
}

func New(api API, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{api: api, logger: logger}
}

func (uc *UseCase) Notifications(ctx context.Context, session *domain.Session) ([]domain.Notification, error) {
	return uc.api.Notifications(ctx, session.AccessToken.Value)
}

func (uc *UseCase) MarkNotificationRead(ctx context.Context, session *domain.Session, notificationID string) error {
	if notificationID == "" {
		return domain.ErrInvalidPayload
	}
	return uc.api.MarkNotificationRead(ctx, session.AccessToken.Value, notificationID)
}

func (uc *UseCase) ReportsSummary(ctx context.Context, session *domain.Session) (json.RawMessage, error) {
	return uc.api.ReportsSummary(ctx, session.AccessToken.Value)
}
