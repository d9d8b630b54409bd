package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/usecase/catalog"
)

type fakeAPI struct {
	medicines []domain.Medicine
	err       error
}

func (f *fakeAPI) DispenserCatalog(ctx context.Context, accessToken string) ([]domain.Medicine, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.medicines, nil
}

func med(id string, stock int) domain.Medicine {
	return domain.Medicine{
		ID:             id,
		BrandName:      "Brand-" + id,
		StockDispenser: stock,
		Status:         domain.StatusAvailable,
	}
}

func TestLoadPopulatesCache(t *testing.T) {
	api := &fakeAPI{medicines: []domain.Medicine{med("m2", 5), med("m1", 3)}}
	uc := catalog.New(api, nil)
	require.False(t, uc.Loaded())

	medicines, err := uc.Load(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, medicines, 2)
	require.True(t, uc.Loaded())

	// Upstream order is preserved.
	list := uc.List()
	require.Equal(t, "m2", list[0].ID)
	require.Equal(t, "m1", list[1].ID)
}

func TestLoadFailureKeepsPreviousCache(t *testing.T) {
	api := &fakeAPI{medicines: []domain.Medicine{med("m1", 3)}}
	uc := catalog.New(api, nil)

	_, err := uc.Load(context.Background(), "token")
	require.NoError(t, err)

	api.err = errors.New("upstream down")
	_, err = uc.Load(context.Background(), "token")
	require.Error(t, err)

	require.True(t, uc.Loaded())
	require.Len(t, uc.List(), 1)
}

func TestGetUnknownMedicine(t *testing.T) {
	uc := catalog.New(&fakeAPI{}, nil)
	_, err := uc.Get("nope")
	require.ErrorIs(t, err, domain.ErrMedicineNotFound)
}

func TestMergeAppliesSaleOutcomes(t *testing.T) {
	api := &fakeAPI{medicines: []domain.Medicine{med("m1", 10), med("m2", 10)}}
	uc := catalog.New(api, nil)
	_, err := uc.Load(context.Background(), "token")
	require.NoError(t, err)

	uc.Merge([]domain.SaleResultLine{
		{MedicineID: "m1", NewDispenserStock: 2, Status: domain.StatusLowStock},
		{MedicineID: "unknown", NewDispenserStock: 0, Status: domain.StatusOutOfStock},
	})

	updated, err := uc.Get("m1")
	require.NoError(t, err)
	require.Equal(t, 2, updated.StockDispenser)
	require.Equal(t, domain.StatusLowStock, updated.Status)

	untouched, err := uc.Get("m2")
	require.NoError(t, err)
	require.Equal(t, 10, untouched.StockDispenser)
}
