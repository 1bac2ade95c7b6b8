package shop

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ashwin275/billing-api/internal/common"
)

// Querier is the persistence surface the service depends on.
type Querier interface {
	Create(ctx context.Context, in CreateInput) (Shop, error)
	GetByID(ctx context.Context, id uuid.UUID) (Shop, error)
	List(ctx context.Context, f ListFilter) ([]Shop, int, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Shop, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements shop use cases over the repository.
type Service struct {
	Q      Querier
	Logger zerolog.Logger
}

// Create validates and stores a new shop.
func (s *Service) Create(ctx context.Context, in CreateInput) (Shop, error) {
	if err := common.Validate(in); err != nil {
		return Shop{}, err
	}
	out, err := s.Q.Create(ctx, in)
	if err != nil {
		return Shop{}, mapRepoError(err)
	}
	s.Logger.Info().Str("shop_id", out.ID.String()).Msg("shop created")
	return out, nil
}

// Get fetches a shop by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Shop, error) {
	out, err := s.Q.GetByID(ctx, id)
	if err != nil {
		return Shop{}, mapRepoError(err)
	}
	return out, nil
}

// List returns a page of shops and the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Shop, int, error) {
	out, total, err := s.Q.List(ctx, f)
	if err != nil {
		return nil, 0, mapRepoError(err)
	}
	return out, total, nil
}

// Update validates and applies a partial update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Shop, error) {
	if err := common.Validate(in); err != nil {
		return Shop{}, err
	}
	out, err := s.Q.Update(ctx, id, in)
	if err != nil {
		return Shop{}, mapRepoError(err)
	}
	return out, nil
}

// Delete removes a shop.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Q.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func mapRepoError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewAppError("SHOP_NOT_FOUND", "shop not found", http.StatusNotFound, err)
	}
	return err
}
