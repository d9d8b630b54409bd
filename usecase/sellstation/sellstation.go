package sellstation

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/repository"
	"github.com/pharmadesk/station/usecase"
	catalogUC "github.com/pharmadesk/station/usecase/catalog"
)

// SaleAPI is the slice of the pharmacy client the sell station needs.
type SaleAPI interface {
	Sell(ctx context.Context, accessToken string, req domain.SaleRequest) ([]domain.SaleResultLine, error)
}

// cartState pairs a cart with its in-flight flag. A second checkout while
// one is pending is rejected rather than double-submitted.
type cartState struct {
	cart    *domain.Cart
	pending bool
}

// UseCase owns one cart per operator session and runs the checkout flow:
// submit the cart atomically, reconcile the catalog cache from the result,
// and queue stock alerts as post-commit effects.
type UseCase struct {
	api     SaleAPI
	catalog *catalogUC.UseCase
	effects usecase.EffectQueue
	audit   repository.AuditRepository
	logger  *zap.Logger

	mu    sync.Mutex
	carts map[string]*cartState
}

func New(api SaleAPI, catalog *catalogUC.UseCase, effects usecase.EffectQueue, audit repository.AuditRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		api:     api,
		catalog: catalog,
		effects: effects,
		audit:   audit,
		logger:  logger,
		carts:   make(map[string]*cartState),
	}
}

// AddToCart adds one unit of the medicine to the session's cart. At the
// stock ceiling the call is a silent no-op, mirroring the sell-station UI.
func (uc *UseCase) AddToCart(sessionID, medicineID string) error {
	med, err := uc.catalog.Get(medicineID)
	if err != nil {
		return err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.state(sessionID).cart.Add(med)
	return nil
}

// UpdateQuantity sets a line's quantity. Out-of-bounds requests are no-ops.
func (uc *UseCase) UpdateQuantity(sessionID, medicineID string, quantity int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.state(sessionID).cart.UpdateQuantity(medicineID, quantity)
}

// RemoveFromCart drops a line unconditionally.
func (uc *UseCase) RemoveFromCart(sessionID, medicineID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.state(sessionID).cart.Remove(medicineID)
}

// ViewCart returns the current lines and total for the session.
func (uc *UseCase) ViewCart(sessionID string) ([]domain.CartLine, float64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	state := uc.state(sessionID)
	return state.cart.Lines(), state.cart.Total()
}

// DropCart discards the session's cart. Wired to session teardown.
func (uc *UseCase) DropCart(sessionID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.carts, sessionID)
}

// Checkout submits the whole cart as one sale. On success the cart is
// cleared, the catalog cache reconciled, and alerts queued for every
// medicine whose new status warrants one. On failure the cart is left
// exactly as it was so the operator can retry.
func (uc *UseCase) Checkout(ctx context.Context, session *domain.Session) (*domain.SaleResult, error) {
	if session == nil {
		return nil, domain.ErrUnauthorized
	}

	uc.mu.Lock()
	state := uc.state(session.ID)
	if state.cart.Len() == 0 {
		uc.mu.Unlock()
		return nil, domain.ErrCartEmpty
	}
	if state.pending {
		uc.mu.Unlock()
		return nil, domain.ErrCheckoutInFlight
	}
	state.pending = true
	req := state.cart.SaleRequest()
	total := state.cart.Total()
	uc.mu.Unlock()

	results, err := uc.api.Sell(ctx, session.AccessToken.Value, req)

	uc.mu.Lock()
	state.pending = false
	if err != nil {
		uc.mu.Unlock()
		uc.logger.Warn("checkout failed, cart preserved",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return nil, err
	}
	state.cart.Clear()
	uc.mu.Unlock()

	uc.catalog.Merge(results)
	uc.queueAlerts(ctx, session, results)
	uc.recordAudit(ctx, session, req, total)

	uc.logger.Info("sale processed",
		zap.String("session_id", session.ID),
		zap.Int("lines", len(req.Cart)),
		zap.Float64("total", total))

	return &domain.SaleResult{Lines: results, Total: total}, nil
}

// queueAlerts enqueues one effect per alerting medicine. Queue failures are
// logged and swallowed; the sale has already committed upstream.
func (uc *UseCase) queueAlerts(ctx context.Context, session *domain.Session, results []domain.SaleResultLine) {
	if uc.effects == nil {
		return
	}
	for _, line := range results {
		if !line.Status.NeedsAlert() {
			continue
		}
		alert := domain.StockAlert{
			MedicineID: line.MedicineID,
			Status:     line.Status,
			NewStock:   line.NewDispenserStock,
			FCMToken:   session.Operator.FCMToken,
		}
		if med, err := uc.catalog.Get(line.MedicineID); err == nil {
			alert.BrandName = med.BrandName
		}
		if err := uc.effects.EnqueueAlert(ctx, session.ID, alert); err != nil {
			uc.logger.Error("failed to queue stock alert",
				zap.String("medicine_id", line.MedicineID),
				zap.Error(err))
		}
	}
}

func (uc *UseCase) recordAudit(ctx context.Context, session *domain.Session, req domain.SaleRequest, total float64) {
	if uc.audit == nil {
		return
	}
	event := &domain.AuditEvent{
		SessionID: session.ID,
		UserID:    session.Operator.ID,
		Action:    domain.AuditCheckout,
		Detail: map[string]string{
			"lines": strconv.Itoa(len(req.Cart)),
			"total": strconv.FormatFloat(total, 'f', 2, 64),
		},
	}
	if err := uc.audit.Record(ctx, event); err != nil {
		uc.logger.Warn("failed to record checkout audit event", zap.Error(err))
	}
}

// state returns the cart state for a session, creating it on first use.
// Caller must hold the mutex.
func (uc *UseCase) state(sessionID string) *cartState {
	if s, ok := uc.carts[sessionID]; ok {
		return s
	}
	s := &cartState{cart: domain.NewCart()}
	uc.carts[sessionID] = s
	return s
}
