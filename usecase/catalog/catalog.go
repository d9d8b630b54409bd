package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
)

// API is the slice of the pharmacy client the catalog needs.
type API interface {
	DispenserCatalog(ctx context.Context, accessToken string) ([]domain.Medicine, error)
}

// UseCase caches the dispenser-stock catalog for the sell station. The
// pharmacy API stays the source of truth; the cache only exists so cart
// operations can clamp quantities against the last known stock and so a
// failed reload never wipes what the operator is already looking at.
type UseCase struct {
	api    API
	logger *zap.Logger

	mu        sync.RWMutex
	medicines map[string]domain.Medicine
	order     []string
	loaded    bool
}

func New(api API, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		api:       api,
		logger:    logger,
		medicines: make(map[string]domain.Medicine),
	}
}

// Load fetches the dispenser catalog and replaces the cache. On failure the
// previous cache is kept intact and the error is surfaced for retry.
func (uc *UseCase) Load(ctx context.Context, accessToken string) ([]domain.Medicine, error) {
	medicines, err := uc.api.DispenserCatalog(ctx, accessToken)
	if err != nil {
		uc.logger.Warn("catalog load failed", zap.Error(err))
		return nil, err
	}

	uc.mu.Lock()
	uc.medicines = make(map[string]domain.Medicine, len(medicines))
	uc.order = make([]string, 0, len(medicines))
	for _, med := range medicines {
		uc.medicines[med.ID] = med
		uc.order = append(uc.order, med.ID)
	}
	uc.loaded = true
	uc.mu.Unlock()

	uc.logger.Info("catalog loaded", zap.Int("medicines", len(medicines)))
	return medicines, nil
}

// List returns the cached catalog in upstream order.
func (uc *UseCase) List() []domain.Medicine {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make([]domain.Medicine, 0, len(uc.order))
	for _, id := range uc.order {
		out = append(out, uc.medicines[id])
	}
	return out
}

// Get returns one cached catalog entry.
func (uc *UseCase) Get(medicineID string) (domain.Medicine, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	med, ok := uc.medicines[medicineID]
	if !ok {
		return domain.Medicine{}, domain.ErrMedicineNotFound
	}
	return med, nil
}

// Loaded reports whether an initial catalog fetch has succeeded.
func (uc *UseCase) Loaded() bool {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.loaded
}

// Merge applies post-sale stock and status outcomes to the cache.
func (uc *UseCase) Merge(results []domain.SaleResultLine) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for _, line := range results {
		med, ok := uc.medicines[line.MedicineID]
		if !ok {
			continue
		}
		med.StockDispenser = line.NewDispenserStock
		med.Status = line.Status
		uc.medicines[line.MedicineID] = med
	}
}
