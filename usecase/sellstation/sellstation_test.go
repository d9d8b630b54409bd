package sellstation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/repository"
	catalogUC "github.com/pharmadesk/station/usecase/catalog"
	"github.com/pharmadesk/station/usecase/sellstation"
)

type fakeSaleAPI struct {
	mu      sync.Mutex
	results []domain.SaleResultLine
	err     error
	calls   int
	lastReq domain.SaleRequest

	// block, when set, holds the Sell call open until released. Used to
	// exercise the duplicate-submit guard.
	block chan struct{}
}

func (f *fakeSaleAPI) Sell(ctx context.Context, accessToken string, req domain.SaleRequest) ([]domain.SaleResultLine, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeCatalogAPI struct {
	medicines []domain.Medicine
}

func (f *fakeCatalogAPI) DispenserCatalog(ctx context.Context, accessToken string) ([]domain.Medicine, error) {
	return f.medicines, nil
}

type fakeEffects struct {
	mu     sync.Mutex
	alerts []domain.StockAlert
	err    error
}

func (f *fakeEffects) EnqueueAlert(ctx context.Context, sessionID string, alert domain.StockAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeEffects) queued() []domain.StockAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.StockAlert(nil), f.alerts...)
}

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (f *fakeAudit) Record(ctx context.Context, event *domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeAudit) List(ctx context.Context, _ repository.AuditFilter) ([]domain.AuditEvent, error) {
	return nil, nil
}

func (f *fakeAudit) recorded() []domain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditEvent(nil), f.events...)
}

func medicine(id string, stock int, price float64) domain.Medicine {
	return domain.Medicine{
		ID:             id,
		BrandName:      "Brand-" + id,
		StockDispenser: stock,
		SellingPrice:   price,
		Status:         domain.StatusAvailable,
	}
}

func session(id string) *domain.Session {
	return &domain.Session{
		ID:          id,
		Operator:    domain.Operator{ID: "op-1", Email: "operator@pharmacy.test", FCMToken: "fcm-1"},
		AccessToken: domain.Token{Value: "access-1", ExpiresAt: time.Now().Add(time.Hour)},
		State:       domain.StateActiveTimed,
		Version:     1,
	}
}

type fixture struct {
	api     *fakeSaleAPI
	catalog *catalogUC.UseCase
	effects *fakeEffects
	uc      *sellstation.UseCase
}

func setup(t *testing.T, medicines ...domain.Medicine) *fixture {
	t.Helper()

	api := &fakeSaleAPI{}
	effects := &fakeEffects{}
	catalog := catalogUC.New(&fakeCatalogAPI{medicines: medicines}, nil)
	_, err := catalog.Load(context.Background(), "access-1")
	require.NoError(t, err)

	return &fixture{
		api:     api,
		catalog: catalog,
		effects: effects,
		uc:      sellstation.New(api, catalog, effects, nil, nil),
	}
}

func TestAddToCartUnknownMedicine(t *testing.T) {
	f := setup(t, medicine("m1", 5, 2.50))

	err := f.uc.AddToCart("s1", "does-not-exist")
	require.ErrorIs(t, err, domain.ErrMedicineNotFound)
}

func TestCartsAreIsolatedPerSession(t *testing.T) {
	f := setup(t, medicine("m1", 5, 2.50))

	require.NoError(t, f.uc.AddToCart("s1", "m1"))
	require.NoError(t, f.uc.AddToCart("s1", "m1"))
	require.NoError(t, f.uc.AddToCart("s2", "m1"))

	lines1, total1 := f.uc.ViewCart("s1")
	lines2, total2 := f.uc.ViewCart("s2")
	require.Equal(t, 2, lines1[0].Quantity)
	require.InDelta(t, 5.00, total1, 1e-9)
	require.Equal(t, 1, lines2[0].Quantity)
	require.InDelta(t, 2.50, total2, 1e-9)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := setup(t, medicine("m1", 5, 2.50))

	_, err := f.uc.Checkout(context.Background(), session("s1"))
	require.ErrorIs(t, err, domain.ErrCartEmpty)
	require.Equal(t, 0, f.api.calls)
}

func TestCheckoutSuccessClearsCartAndReconcilesCatalog(t *testing.T) {
	f := setup(t, medicine("m1", 10, 2.50), medicine("m2", 10, 5.00))
	f.api.results = []domain.SaleResultLine{
		{MedicineID: "m1", NewDispenserStock: 7, Status: domain.StatusAvailable},
		{MedicineID: "m2", NewDispenserStock: 8, Status: domain.StatusAvailable},
	}

	sess := session("s1")
	require.NoError(t, f.uc.AddToCart(sess.ID, "m1"))
	f.uc.UpdateQuantity(sess.ID, "m1", 3)
	require.NoError(t, f.uc.AddToCart(sess.ID, "m2"))
	f.uc.UpdateQuantity(sess.ID, "m2", 2)

	result, err := f.uc.Checkout(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	require.InDelta(t, 17.50, result.Total, 1e-9)

	require.Equal(t, domain.SaleRequest{Cart: []domain.SaleLine{
		{MedicineID: "m1", Quantity: 3},
		{MedicineID: "m2", Quantity: 2},
	}}, f.api.lastReq, "the whole cart is submitted as one sale")

	lines, total := f.uc.ViewCart(sess.ID)
	require.Empty(t, lines)
	require.Zero(t, total)

	med, err := f.catalog.Get("m1")
	require.NoError(t, err)
	require.Equal(t, 7, med.StockDispenser)
}

func TestCheckoutFailurePreservesCart(t *testing.T) {
	f := setup(t, medicine("m1", 10, 2.50))
	f.api.err = errors.New("insufficient stock")

	sess := session("s1")
	require.NoError(t, f.uc.AddToCart(sess.ID, "m1"))
	f.uc.UpdateQuantity(sess.ID, "m1", 4)

	_, err := f.uc.Checkout(context.Background(), sess)
	require.Error(t, err)

	lines, total := f.uc.ViewCart(sess.ID)
	require.Len(t, lines, 1)
	require.Equal(t, 4, lines[0].Quantity)
	require.InDelta(t, 10.00, total, 1e-9)

	// A retry is possible once the first attempt has resolved.
	f.api.err = nil
	f.api.results = []domain.SaleResultLine{
		{MedicineID: "m1", NewDispenserStock: 6, Status: domain.StatusAvailable},
	}
	_, err = f.uc.Checkout(context.Background(), sess)
	require.NoError(t, err)
}

func TestCheckoutWhilePendingIsRejected(t *testing.T) {
	f := setup(t, medicine("m1", 10, 2.50))
	f.api.block = make(chan struct{})
	f.api.results = []domain.SaleResultLine{
		{MedicineID: "m1", NewDispenserStock: 9, Status: domain.StatusAvailable},
	}

	sess := session("s1")
	require.NoError(t, f.uc.AddToCart(sess.ID, "m1"))

	first := make(chan error, 1)
	go func() {
		_, err := f.uc.Checkout(context.Background(), sess)
		first <- err
	}()

	// Wait for the first checkout to reach the upstream call.
	require.Eventually(t, func() bool {
		f.api.mu.Lock()
		defer f.api.mu.Unlock()
		return f.api.calls == 1
	}, time.Second, 5*time.Millisecond)

	_, err := f.uc.Checkout(context.Background(), sess)
	require.ErrorIs(t, err, domain.ErrCheckoutInFlight)

	close(f.api.block)
	require.NoError(t, <-first)
	require.Equal(t, 1, f.api.calls)
}

func TestCheckoutQueuesAlertsForFlaggedStock(t *testing.T) {
	f := setup(t, medicine("m1", 10, 2.50), medicine("m2", 10, 5.00), medicine("m3", 10, 1.00))
	f.api.results = []domain.SaleResultLine{
		{MedicineID: "m1", NewDispenserStock: 8, Status: domain.StatusAvailable},
		{MedicineID: "m2", NewDispenserStock: 2, Status: domain.StatusLowStock},
		{MedicineID: "m3", NewDispenserStock: 0, Status: domain.StatusOutOfStock},
	}

	sess := session("s1")
	require.NoError(t, f.uc.AddToCart(sess.ID, "m1"))
	require.NoError(t, f.uc.AddToCart(sess.ID, "m2"))
	require.NoError(t, f.uc.AddToCart(sess.ID, "m3"))

	_, err := f.uc.Checkout(context.Background(), sess)
	require.NoError(t, err)

	alerts := f.effects.queued()
	require.Len(t, alerts, 2, "only low-stock and out-of-stock lines alert")

	require.Equal(t, "m2", alerts[0].MedicineID)
	require.Equal(t, domain.StatusLowStock, alerts[0].Status)
	require.Equal(t, "Brand-m2", alerts[0].BrandName)
	require.Equal(t, "fcm-1", alerts[0].FCMToken)

	require.Equal(t, "m3", alerts[1].MedicineID)
	require.Equal(t, domain.StatusOutOfStock, alerts[1].Status)
}

func TestCheckoutSucceedsWhenAlertQueueFails(t *testing.T) {
	f := setup(t, medicine("m1", 10, 2.50))
	f.api.results = []domain.SaleResultLine{
		{MedicineID: "m1", NewDispenserStock: 1, Status: domain.StatusLowStock},
	}
	f.effects.err = errors.New("outbox unavailable")

	sess := session("s1")
	require.NoError(t, f.uc.AddToCart(sess.ID, "m1"))

	// The sale has committed upstream; a queue failure must not undo it.
	result, err := f.uc.Checkout(context.Background(), sess)
	require.NoError(t, err)
	require.NotNil(t, result)

	lines, _ := f.uc.ViewCart(sess.ID)
	require.Empty(t, lines)
}

func TestCheckoutRecordsAuditEvent(t *testing.T) {
	api := &fakeSaleAPI{results: []domain.SaleResultLine{
		{MedicineID: "m1", NewDispenserStock: 9, Status: domain.StatusAvailable},
	}}
	catalog := catalogUC.New(&fakeCatalogAPI{medicines: []domain.Medicine{medicine("m1", 10, 2.50)}}, nil)
	_, err := catalog.Load(context.Background(), "access-1")
	require.NoError(t, err)

	audit := &fakeAudit{}
	uc := sellstation.New(api, catalog, &fakeEffects{}, audit, nil)

	sess := session("s1")
	require.NoError(t, uc.AddToCart(sess.ID, "m1"))

	_, err = uc.Checkout(context.Background(), sess)
	require.NoError(t, err)

	events := audit.recorded()
	require.Len(t, events, 1)
	require.Equal(t, domain.AuditCheckout, events[0].Action)
	require.Equal(t, "op-1", events[0].UserID)
	require.Equal(t, "1", events[0].Detail["lines"])
	require.Equal(t, "2.50", events[0].Detail["total"])
}

func TestDropCartDiscardsState(t *testing.T) {
	f := setup(t, medicine("m1", 10, 2.50))

	require.NoError(t, f.uc.AddToCart("s1", "m1"))
	f.uc.DropCart("s1")

	lines, total := f.uc.ViewCart("s1")
	require.Empty(t, lines)
	require.Zero(t, total)
}
