package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/event"
	"github.com/utafrali/CloudGames/internal/repository"
	"github.com/utafrali/CloudGames/internal/search"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
)

// ConsistencyGapError reports a mutation that reached the record store but
// not the search index. The pending outbox marker repairs the index later.
type ConsistencyGapError struct {
	Op   string
	Game *domain.Game
	Err  error
}

func (e *ConsistencyGapError) Error() string {
	return fmt.Sprintf("%s game %s: %v: %v", e.Op, e.Game.ID, apperrors.ErrConsistencyGap, e.Err)
}

func (e *ConsistencyGapError) Unwrap() []error {
	return []error{apperrors.ErrConsistencyGap, e.Err}
}

// CatalogService keeps the record store and the search index in step for
// every catalog mutation.
type CatalogService struct {
	repo    repository.GameRepository
	outbox  repository.OutboxRepository
	indexer search.Indexer
	cache   repository.PopularCache
	events  event.Publisher
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(
	repo repository.GameRepository,
	outbox repository.OutboxRepository,
	indexer search.Indexer,
	cache repository.PopularCache,
	events event.Publisher,
	logger *slog.Logger,
) *CatalogService {
	if events == nil {
		events = event.Noop{}
	}
	return &CatalogService{
		repo:    repo,
		outbox:  outbox,
		indexer: indexer,
		cache:   cache,
		events:  events,
		logger:  logger,
	}
}

// Create stores a new game and then indexes it. Indexing is never attempted
// when the store write fails.
func (s *CatalogService) Create(ctx context.Context, fields domain.GameFields) (*domain.Game, error) {
	game, err := domain.NewGame(fields)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	if err := s.events.PublishGameCreated(ctx, game); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish game.created event",
			slog.String("game_id", game.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.indexer.Index(ctx, game); err != nil {
		return game, s.gap(ctx, "create", game, err)
	}
	s.synced(ctx, game.ID, domain.OutboxOpIndex, game)

	s.logger.InfoContext(ctx, "game created",
		slog.String("game_id", game.ID),
		slog.String("title", game.Title),
	)
	return game, nil
}

// Get returns a game by id.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Game, error) {
	game, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	if game == nil {
		return nil, apperrors.NotFound("game", id)
	}
	return game, nil
}

// List returns every game in the record store.
func (s *CatalogService) List(ctx context.Context) ([]domain.Game, error) {
	games, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// Update replaces every mutable field of an existing game and re-indexes it.
// An unknown id fails before the index is touched.
func (s *CatalogService) Update(ctx context.Context, id string, fields domain.GameFields) (*domain.Game, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get game for update: %w", err)
	}
	if existing == nil {
		return nil, apperrors.NotFound("game", id)
	}

	existing.Apply(fields)
	if err := existing.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update game: %w", err)
	}
	if updated == nil {
		// Deleted between the read and the write.
		return nil, apperrors.NotFound("game", id)
	}

	if err := s.events.PublishGameUpdated(ctx, updated); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish game.updated event",
			slog.String("game_id", updated.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.indexer.Index(ctx, updated); err != nil {
		return updated, s.gap(ctx, "update", updated, err)
	}
	s.synced(ctx, updated.ID, domain.OutboxOpIndex, updated)

	s.logger.InfoContext(ctx, "game updated",
		slog.String("game_id", updated.ID),
	)
	return updated, nil
}

// Delete removes an existing game from the record store and then from the
// index.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get game for delete: %w", err)
	}
	if existing == nil {
		return apperrors.NotFound("game", id)
	}

	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	if err := s.events.PublishGameDeleted(ctx, existing.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish game.deleted event",
			slog.String("game_id", existing.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.indexer.Remove(ctx, existing.ID); err != nil {
		return s.gap(ctx, "delete", existing, err)
	}
	s.synced(ctx, existing.ID, domain.OutboxOpRemove, nil)

	s.logger.InfoContext(ctx, "game deleted",
		slog.String("game_id", existing.ID),
	)
	return nil
}

func (s *CatalogService) gap(ctx context.Context, op string, game *domain.Game, err error) error {
	s.logger.WarnContext(ctx, "search index out of sync, left to outbox",
		slog.String("op", op),
		slog.String("game_id", game.ID),
		slog.String("error", err.Error()),
	)
	return &ConsistencyGapError{Op: op, Game: game, Err: err}
}

// synced acknowledges the outbox marker and drops cached popular lists.
// Neither failure affects the caller.
func (s *CatalogService) synced(ctx context.Context, id string, op domain.OutboxOperation, game *domain.Game) {
	var version time.Time
	if game != nil {
		version = game.UpdatedAt
	}

	if s.outbox != nil {
		if err := s.outbox.Ack(ctx, id, op, version); err != nil {
			s.logger.WarnContext(ctx, "failed to ack index sync marker",
				slog.String("game_id", id),
				slog.String("op", string(op)),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate popular games cache",
				slog.String("error", err.Error()),
			)
		}
	}
}
