package product

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ashwin275/billing-api/internal/billing"
	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/events"
)

// Querier is the persistence surface the service depends on.
type Querier interface {
	Create(ctx context.Context, shopID uuid.UUID, in CreateInput, rates RateSet) (Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	List(ctx context.Context, f ListFilter) ([]Product, int, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, rates RateUpdates) (Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements product use cases over the repository.
type Service struct {
	Q      Querier
	Bus    *events.Bus
	Logger zerolog.Logger
}

// Create validates and stores a new product. Rates pass through the billing
// amount boundary so non-finite input never reaches the database.
func (s *Service) Create(ctx context.Context, in CreateInput) (Product, error) {
	if err := common.Validate(in); err != nil {
		return Product{}, err
	}
	shopID, err := uuid.Parse(in.ShopID)
	if err != nil {
		return Product{}, common.NewAppError("VALIDATION_ERROR", "invalid shop_id", http.StatusUnprocessableEntity, err)
	}
	rates, err := ratesFromCreate(in)
	if err != nil {
		return Product{}, common.NewAppError("VALIDATION_ERROR", "invalid numeric value", http.StatusUnprocessableEntity, err)
	}
	p, err := s.Q.Create(ctx, shopID, in, rates)
	if err != nil {
		return Product{}, mapRepoError(err)
	}
	s.Logger.Info().Str("product_id", p.ID.String()).Msg("product created")
	return p, nil
}

// Get fetches a product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := s.Q.GetByID(ctx, id)
	if err != nil {
		return Product{}, mapRepoError(err)
	}
	return p, nil
}

// List returns a page of products and the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Product, int, error) {
	out, total, err := s.Q.List(ctx, f)
	if err != nil {
		return nil, 0, mapRepoError(err)
	}
	return out, total, nil
}

// Catalog loads the pricing snapshot for the given product ids.
func (s *Service) Catalog(ctx context.Context, ids []uuid.UUID) ([]billing.ProductPricing, error) {
	products, err := s.Q.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]billing.ProductPricing, 0, len(products))
	for _, p := range products {
		out = append(out, p.Pricing())
	}
	return out, nil
}

// Update validates and applies a partial update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Product, error) {
	if err := common.Validate(in); err != nil {
		return Product{}, err
	}
	rates, err := ratesFromUpdate(in)
	if err != nil {
		return Product{}, common.NewAppError("VALIDATION_ERROR", "invalid numeric value", http.StatusUnprocessableEntity, err)
	}
	p, err := s.Q.Update(ctx, id, in, rates)
	if err != nil {
		return Product{}, mapRepoError(err)
	}
	if s.Bus != nil {
		s.Bus.Publish(ctx, events.TopicProductUpdated, p.ID.String(), map[string]any{
			"shop_id": p.ShopID.String(),
			"name":    p.Name,
		})
	}
	return p, nil
}

// Delete deactivates a product.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Q.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func ratesFromCreate(in CreateInput) (RateSet, error) {
	var (
		rates RateSet
		err   error
	)
	if rates.Retail, err = billing.Amount(in.RetailRate); err != nil {
		return RateSet{}, err
	}
	if rates.Wholesale, err = billing.Amount(in.WholesaleRate); err != nil {
		return RateSet{}, err
	}
	if rates.Purchase, err = billing.Amount(in.PurchaseRate); err != nil {
		return RateSet{}, err
	}
	if rates.Tax, err = billing.Amount(in.TaxRate); err != nil {
		return RateSet{}, err
	}
	if rates.Cess, err = billing.Amount(in.CessRate); err != nil {
		return RateSet{}, err
	}
	if rates.Stock, err = billing.Amount(in.StockQuantity); err != nil {
		return RateSet{}, err
	}
	return rates, nil
}

func ratesFromUpdate(in UpdateInput) (RateUpdates, error) {
	var out RateUpdates
	conv := func(v *float64) (*decimal.Decimal, error) {
		if v == nil {
			return nil, nil
		}
		d, err := billing.Amount(*v)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}
	var err error
	if out.Retail, err = conv(in.RetailRate); err != nil {
		return RateUpdates{}, err
	}
	if out.Wholesale, err = conv(in.WholesaleRate); err != nil {
		return RateUpdates{}, err
	}
	if out.Purchase, err = conv(in.PurchaseRate); err != nil {
		return RateUpdates{}, err
	}
	if out.Tax, err = conv(in.TaxRate); err != nil {
		return RateUpdates{}, err
	}
	if out.Cess, err = conv(in.CessRate); err != nil {
		return RateUpdates{}, err
	}
	if out.Stock, err = conv(in.StockQuantity); err != nil {
		return RateUpdates{}, err
	}
	return out, nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
	case errors.Is(err, ErrDuplicateSKU):
		return common.NewAppError("PRODUCT_EXISTS", "product sku already registered for shop", http.StatusConflict, err)
	default:
		return err
	}
}
