package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/repository"
	"github.com/utafrali/CloudGames/internal/search"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
	"github.com/utafrali/CloudGames/pkg/pagination"
)

// SearchService answers read queries straight from the search index. It never
// falls back to the record store.
type SearchService struct {
	searcher search.Searcher
	cache    repository.PopularCache
	logger   *slog.Logger
}

// NewSearchService creates a new search service. cache may be nil.
func NewSearchService(searcher search.Searcher, cache repository.PopularCache, logger *slog.Logger) *SearchService {
	return &SearchService{
		searcher: searcher,
		cache:    cache,
		logger:   logger,
	}
}

// Search runs a full-text query. Out-of-range paging values are replaced by
// their defaults; blank text is rejected before the backend is called.
func (s *SearchService) Search(ctx context.Context, text string, page, pageSize int) (*pagination.Result[domain.Game], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.InvalidInput("search query must not be empty")
	}

	p := pagination.Normalize(page, pageSize)
	res, err := s.searcher.Search(ctx, text, p)
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}

	out := pagination.NewResult(res.Games, res.Total, p)
	return &out, nil
}

// Popular returns up to top games, newest release first. Lists are served
// from the cache when possible; cache errors are logged and ignored. A list is
// only written back when the cache read succeeded, tagged with the generation
// that read saw, so a mutation that lands during the backend query cannot be
// masked by the older list.
func (s *SearchService) Popular(ctx context.Context, top int) ([]domain.Game, error) {
	top = pagination.NormalizeTop(top)

	fill := false
	var lookup repository.PopularLookup
	if s.cache != nil {
		var err error
		lookup, err = s.cache.Get(ctx, top)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "popular games cache read failed",
				slog.Int("top", top),
				slog.String("error", err.Error()),
			)
		case lookup.Hit:
			return lookup.Games, nil
		default:
			fill = true
		}
	}

	games, err := s.searcher.Popular(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("popular games: %w", err)
	}

	if fill {
		if err := s.cache.Set(ctx, lookup.Generation, top, games); err != nil {
			s.logger.WarnContext(ctx, "popular games cache write failed",
				slog.Int("top", top),
				slog.String("error", err.Error()),
			)
		}
	}
	return games, nil
}
