package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ashwin275/billing-api/internal/common"
)

// Querier is the persistence surface the service depends on.
type Querier interface {
	Create(ctx context.Context, in CreateInput, passwordHash string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, f ListFilter) ([]User, int, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, passwordHash string) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements user administration.
type Service struct {
	Q      Querier
	Logger zerolog.Logger
}

// Create validates, hashes the password and stores a new user.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	if err := common.Validate(in); err != nil {
		return User{}, err
	}
	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.Q.Create(ctx, in, hash)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	s.Logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user created")
	return u, nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := s.Q.GetByID(ctx, id)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return u, nil
}

// List returns a page of users and the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	out, total, err := s.Q.List(ctx, f)
	if err != nil {
		return nil, 0, mapRepoError(err)
	}
	return out, total, nil
}

// Update validates and applies a partial update, re-hashing the password
// when one is supplied.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (User, error) {
	if err := common.Validate(in); err != nil {
		return User{}, err
	}
	hash := ""
	if in.Password != nil {
		var err error
		hash, err = argon2id.CreateHash(*in.Password, argon2id.DefaultParams)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
	}
	u, err := s.Q.Update(ctx, id, in, hash)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return u, nil
}

// Delete deactivates a user.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Q.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("USER_NOT_FOUND", "user not found", http.StatusNotFound, err)
	case errors.Is(err, ErrDuplicateEmail):
		return common.NewAppError("USER_EXISTS", "email already registered", http.StatusConflict, err)
	default:
		return err
	}
}
