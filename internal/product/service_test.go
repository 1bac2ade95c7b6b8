package product

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	products map[uuid.UUID]Product
	created  []RateSet
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{products: map[uuid.UUID]Product{}}
}

func (f *fakeQuerier) Create(_ context.Context, shopID uuid.UUID, in CreateInput, rates RateSet) (Product, error) {
	f.created = append(f.created, rates)
	p := Product{
		ID: uuid.New(), ShopID: shopID, Name: in.Name,
		RetailRate: rates.Retail, WholesaleRate: rates.Wholesale,
		TaxRate: rates.Tax, StockQuantity: rates.Stock,
		Unit: "pcs", Active: true,
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeQuerier) GetByID(_ context.Context, id uuid.UUID) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeQuerier) GetByIDs(_ context.Context, ids []uuid.UUID) ([]Product, error) {
	out := []Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeQuerier) List(_ context.Context, _ ListFilter) ([]Product, int, error) {
	out := make([]Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeQuerier) Update(_ context.Context, id uuid.UUID, in UpdateInput, rates RateUpdates) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if rates.Retail != nil {
		p.RetailRate = *rates.Retail
	}
	f.products[id] = p
	return p, nil
}

func (f *fakeQuerier) AdjustStock(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	p, ok := f.products[id]
	if !ok {
		return ErrNotFound
	}
	p.StockQuantity = p.StockQuantity.Add(delta)
	f.products[id] = p
	return nil
}

func (f *fakeQuerier) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.products[id]; !ok {
		return ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func newService(q Querier) *Service {
	return &Service{Q: q, Logger: zerolog.Nop()}
}

func TestCreateProductConvertsRates(t *testing.T) {
	q := newFakeQuerier()
	svc := newService(q)

	p, err := svc.Create(context.Background(), CreateInput{
		ShopID:     uuid.NewString(),
		Name:       "Rice 5kg",
		RetailRate: 349.50,
		TaxRate:    5,
	})
	require.NoError(t, err)
	require.True(t, p.RetailRate.Equal(decimal.RequireFromString("349.5")))
	require.Len(t, q.created, 1)
}

func TestCreateProductRejectsNonFiniteRate(t *testing.T) {
	svc := newService(newFakeQuerier())

	_, err := svc.Create(context.Background(), CreateInput{
		ShopID:     uuid.NewString(),
		Name:       "Broken",
		RetailRate: math.Inf(1),
	})
	require.Error(t, err)
}

func TestProductPricingSplitsGSTInHalf(t *testing.T) {
	p := Product{
		ID:         uuid.New(),
		Name:       "Soap",
		RetailRate: decimal.RequireFromString("40"),
		TaxRate:    decimal.RequireFromString("18"),
		Unit:       "pcs",
	}
	pricing := p.Pricing()
	require.True(t, pricing.CGSTPercent.Equal(decimal.RequireFromString("9")))
	require.True(t, pricing.SGSTPercent.Equal(decimal.RequireFromString("9")))
}

func TestCatalogSkipsMissingProducts(t *testing.T) {
	q := newFakeQuerier()
	svc := newService(q)

	p, err := svc.Create(context.Background(), CreateInput{ShopID: uuid.NewString(), Name: "Known", RetailRate: 10})
	require.NoError(t, err)

	catalog, err := svc.Catalog(context.Background(), []uuid.UUID{p.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	require.Equal(t, p.ID.String(), catalog[0].ID)
}

func TestGetProductNotFound(t *testing.T) {
	svc := newService(newFakeQuerier())

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
}
