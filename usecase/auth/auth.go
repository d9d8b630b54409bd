package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/guard"
	"github.com/pharmadesk/station/repository"
)

// UseCase orchestrates login and logout around the session guard and keeps
// the local audit trail. Audit failures are logged and never block the
// operation that triggered them.
type UseCase struct {
	guard  *guard.Guard
	audit  repository.AuditRepository
	logger *zap.Logger
}

func New(g *guard.Guard, audit repository.AuditRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		guard:  g,
		audit:  audit,
		logger: logger,
	}
}

// Login authenticates the operator and opens a gateway session.
func (uc *UseCase) Login(ctx context.Context, email, password string, rememberMe bool) (*domain.Session, error) {
	session, err := uc.guard.Login(ctx, email, password, rememberMe)
	if err != nil {
		return nil, err
	}

	uc.record(ctx, &domain.AuditEvent{
		SessionID: session.ID,
		UserID:    session.Operator.ID,
		Action:    domain.AuditLogin,
		Detail:    map[string]string{"remember_me": boolString(session.RememberMe)},
	})
	return session, nil
}

// Logout closes the session. Idempotent.
func (uc *UseCase) Logout(ctx context.Context, sessionID string) error {
	session, err := uc.guard.Get(ctx, sessionID)
	if err := uc.guard.Logout(ctx, sessionID); err != nil {
		return err
	}
	if err == nil {
		uc.record(ctx, &domain.AuditEvent{
			SessionID: session.ID,
			UserID:    session.Operator.ID,
			Action:    domain.AuditLogout,
		})
	}
	return nil
}

// Session resolves an active session by ID.
func (uc *UseCase) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return uc.guard.Get(ctx, sessionID)
}

// Touch records qualifying operator activity on the session.
func (uc *UseCase) Touch(sessionID string) {
	uc.guard.Touch(sessionID)
}

// RecordExpiry is installed as the guard's OnExpired hook.
func (uc *UseCase) RecordExpiry(session *domain.Session, reason string) {
	uc.record(context.Background(), &domain.AuditEvent{
		SessionID: session.ID,
		UserID:    session.Operator.ID,
		Action:    domain.AuditExpired,
		Detail:    map[string]string{"reason": reason},
	})
}

// AuditTrail lists locally recorded operator actions.
func (uc *UseCase) AuditTrail(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEvent, error) {
	if uc.audit == nil {
		return nil, nil
	}
	return uc.audit.List(ctx, filter)
}

func (uc *UseCase) record(ctx context.Context, event *domain.AuditEvent) {
	if uc.audit == nil {
		return
	}
	if err := uc.audit.Record(ctx, event); err != nil {
		uc.logger.Warn("failed to record audit event",
			zap.String("action", event.Action),
			zap.Error(err))
	}
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
