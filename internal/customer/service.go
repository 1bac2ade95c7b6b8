package customer

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/events"
)

// Querier is the persistence surface the service depends on.
type Querier interface {
	Create(ctx context.Context, shopID uuid.UUID, in CreateInput) (Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (Customer, error)
	List(ctx context.Context, f ListFilter) ([]Customer, int, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements customer use cases over the repository.
type Service struct {
	Q      Querier
	Bus    *events.Bus
	Logger zerolog.Logger
}

// Create validates and stores a new customer.
func (s *Service) Create(ctx context.Context, in CreateInput) (Customer, error) {
	if err := common.Validate(in); err != nil {
		return Customer{}, err
	}
	shopID, err := uuid.Parse(in.ShopID)
	if err != nil {
		return Customer{}, common.NewAppError("VALIDATION_ERROR", "invalid shop_id", http.StatusUnprocessableEntity, err)
	}
	c, err := s.Q.Create(ctx, shopID, in)
	if err != nil {
		return Customer{}, mapRepoError(err)
	}
	if s.Bus != nil {
		s.Bus.Publish(ctx, events.TopicCustomerCreated, c.ID.String(), map[string]any{
			"shop_id": c.ShopID.String(),
			"name":    c.Name,
		})
	}
	s.Logger.Info().Str("customer_id", c.ID.String()).Msg("customer created")
	return c, nil
}

// Get fetches a customer by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	c, err := s.Q.GetByID(ctx, id)
	if err != nil {
		return Customer{}, mapRepoError(err)
	}
	return c, nil
}

// List returns a page of customers and the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Customer, int, error) {
	out, total, err := s.Q.List(ctx, f)
	if err != nil {
		return nil, 0, mapRepoError(err)
	}
	return out, total, nil
}

// Update validates and applies a partial update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Customer, error) {
	if err := common.Validate(in); err != nil {
		return Customer{}, err
	}
	c, err := s.Q.Update(ctx, id, in)
	if err != nil {
		return Customer{}, mapRepoError(err)
	}
	return c, nil
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Q.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("CUSTOMER_NOT_FOUND", "customer not found", http.StatusNotFound, err)
	case errors.Is(err, ErrDuplicatePhone):
		return common.NewAppError("CUSTOMER_EXISTS", "customer phone already registered for shop", http.StatusConflict, err)
	default:
		return err
	}
}
