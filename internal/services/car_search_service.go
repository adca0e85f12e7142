package services

import (
	"context"
	"fmt"
	"log"

	"carassist-backend/internal/models"
	"carassist-backend/internal/store"
)

// CarSearchService executes bounded catalog searches for the orchestration
// pipeline. It is a thin gateway over catalog storage: criteria in, at most
// `limit` items plus total count out.
type CarSearchService struct {
	store store.Store
}

// NewCarSearchService creates a new CarSearchService.
func NewCarSearchService(store store.Store) *CarSearchService {
	return &CarSearchService{store: store}
}

// Search runs the catalog query for the given criteria. Zero matches is a
// normal outcome and yields an empty result, not an error.
func (s *CarSearchService) Search(ctx context.Context, criteria models.SearchCriteria, limit int) (models.CarSearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	items, total, err := s.store.SearchCars(ctx, criteria, limit)
	if err != nil {
		return models.CarSearchResult{}, fmt.Errorf("catalog search failed: %w", err)
	}

	log.Printf("[CarSearchService] Search produced %d matches (returning up to %d)", total, limit)
	return models.CarSearchResult{TotalCount: total, Items: items}, nil
}
