package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheVersionKey = "reports:ver"

// Service serves dashboard reports with a short-lived Redis cache in front
// of the SQL aggregates. Invalidation bumps a version counter, so stale
// keys simply expire instead of being hunted down.
type Service struct {
	Q      Queries
	R      *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Invalidate bumps the cache version. Subscribed to invoice lifecycle
// events at wiring time.
func (s *Service) Invalidate(ctx context.Context) {
	if s.R == nil {
		return
	}
	if err := s.R.Incr(ctx, cacheVersionKey).Err(); err != nil {
		s.Logger.Error().Err(err).Msg("bump report cache version")
	}
}

func (s *Service) cacheKey(ctx context.Context, name string, r Range, extra string) string {
	ver := "0"
	if s.R != nil {
		if v, err := s.R.Get(ctx, cacheVersionKey).Result(); err == nil {
			ver = v
		}
	}
	shop := "all"
	if r.ShopID != nil {
		shop = r.ShopID.String()
	}
	return fmt.Sprintf("reports:%s:%s:%s:%d:%d:%s",
		ver, name, shop, r.From.Unix(), r.To.Unix(), extra)
}

func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	var out T
	if s.R != nil {
		raw, err := s.R.Get(ctx, key).Bytes()
		if err == nil {
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
		}
	}
	out, err := load()
	if err != nil {
		return out, err
	}
	if s.R != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := s.R.Set(ctx, key, raw, s.TTL).Err(); err != nil {
				s.Logger.Error().Err(err).Str("key", key).Msg("cache report")
			}
		}
	}
	return out, nil
}

// Overview returns the dashboard headline block.
func (s *Service) Overview(ctx context.Context, r Range) (Overview, error) {
	return cached(ctx, s, s.cacheKey(ctx, "overview", r, ""), func() (Overview, error) {
		return s.Q.Overview(ctx, r)
	})
}

// SalesByDay returns the daily sales summary.
func (s *Service) SalesByDay(ctx context.Context, r Range) ([]SalesByDay, error) {
	return cached(ctx, s, s.cacheKey(ctx, "sales", r, ""), func() ([]SalesByDay, error) {
		return s.Q.SalesByDay(ctx, r)
	})
}

// TopProducts returns the best-sellers ranking.
func (s *Service) TopProducts(ctx context.Context, r Range, limit int) ([]TopProduct, error) {
	key := s.cacheKey(ctx, "top-products", r, fmt.Sprintf("%d", limit))
	return cached(ctx, s, key, func() ([]TopProduct, error) {
		return s.Q.TopProducts(ctx, r, limit)
	})
}

// TopCustomers returns the top-customers ranking.
func (s *Service) TopCustomers(ctx context.Context, r Range, limit int) ([]TopCustomer, error) {
	key := s.cacheKey(ctx, "top-customers", r, fmt.Sprintf("%d", limit))
	return cached(ctx, s, key, func() ([]TopCustomer, error) {
		return s.Q.TopCustomers(ctx, r, limit)
	})
}

// TaxSummary returns the GST bracket breakdown.
func (s *Service) TaxSummary(ctx context.Context, r Range) ([]TaxBracket, error) {
	return cached(ctx, s, s.cacheKey(ctx, "tax", r, ""), func() ([]TaxBracket, error) {
		return s.Q.TaxSummary(ctx, r)
	})
}

// DefaultRange builds a range covering the past days up to now.
func (s *Service) DefaultRange(days int) Range {
	now := s.now()
	return Range{From: now.AddDate(0, 0, -days), To: now}
}
