package repository

import (
	"context"
	"time"

	"github.com/utafrali/CloudGames/internal/domain"
)

// GameRepository is the record store for games. It is the only writer of
// canonical game state.
type GameRepository interface {
	// Create inserts a new game.
	Create(ctx context.Context, game *domain.Game) error

	// List returns every game ordered by title, then id.
	List(ctx context.Context) ([]domain.Game, error)

	// GetByID returns the game, or nil with a nil error when it does not exist.
	GetByID(ctx context.Context, id string) (*domain.Game, error)

	// Update replaces the mutable fields of an existing game and returns the
	// stored state, or nil with a nil error when the game does not exist.
	Update(ctx context.Context, game *domain.Game) (*domain.Game, error)

	// Delete removes a game. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// OutboxRepository manages the pending index sync markers written alongside
// every game mutation.
type OutboxRepository interface {
	// Ack removes the marker for gameID once the index reflects the mutation.
	// For index operations version must equal the game's UpdatedAt, so a
	// marker left by a newer concurrent update survives.
	Ack(ctx context.Context, gameID string, op domain.OutboxOperation, version time.Time) error

	// ClaimDue leases up to limit due markers for lease and returns them.
	ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEntry, error)

	// Complete removes a claimed marker unless it changed since the claim.
	Complete(ctx context.Context, entry domain.OutboxEntry) error

	// Reschedule stores the retry state of a claimed marker unless it changed
	// since the claim.
	Reschedule(ctx context.Context, entry domain.OutboxEntry) error

	// CountPending returns the number of markers still waiting to be synced.
	CountPending(ctx context.Context) (int, error)
}

// PopularLookup is the result of a popular cache read. Generation identifies
// the cache contents the read saw and is handed back to Set.
type PopularLookup struct {
	Games      []domain.Game
	Hit        bool
	Generation int64
}

// PopularCache caches the popular games list. Invalidate starts a new
// generation; a Set for an older generation is never visible to Get.
type PopularCache interface {
	Get(ctx context.Context, top int) (PopularLookup, error)
	Set(ctx context.Context, generation int64, top int, games []domain.Game) error
	Invalidate(ctx context.Context) error
}
