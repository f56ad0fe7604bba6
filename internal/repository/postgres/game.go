package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/repository"
	"github.com/utafrali/CloudGames/pkg/database"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
)

const gameColumns = `id::text, title, price::text, description, release_date, developer, publisher, created_at, updated_at`

// GameRepository implements repository.GameRepository using PostgreSQL.
// Every mutation writes its index sync marker in the same transaction.
type GameRepository struct {
	db  database.DBTX
	now func() time.Time
}

var _ repository.GameRepository = (*GameRepository)(nil)

// NewGameRepository creates a PostgreSQL-backed game repository.
func NewGameRepository(db database.DBTX) *GameRepository {
	return &GameRepository{db: db, now: time.Now}
}

// timestamp returns the current time at the precision PostgreSQL stores, so
// values compare equal after a round trip.
func (r *GameRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// Create inserts g and sets its bookkeeping timestamps.
func (r *GameRepository) Create(ctx context.Context, g *domain.Game) error {
	now := r.timestamp()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperrors.StoreUnavailable("begin create game", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO games (id, title, price, description, release_date, developer, publisher, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)`,
		g.ID, g.Title, g.Price.String(), g.Description, g.ReleaseDate.UTC(), g.Developer, g.Publisher, now, now,
	)
	if err != nil {
		return apperrors.StoreUnavailable("insert game", err)
	}

	if err := writeMarker(ctx, tx, g.ID, domain.OutboxOpIndex, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.StoreUnavailable("commit create game", err)
	}

	g.CreatedAt = now
	g.UpdatedAt = now
	return nil
}

// List returns every game ordered by title, then id.
func (r *GameRepository) List(ctx context.Context) ([]domain.Game, error) {
	rows, err := r.db.Query(ctx, `SELECT `+gameColumns+` FROM games ORDER BY title, id`)
	if err != nil {
		return nil, apperrors.StoreUnavailable("list games", err)
	}
	defer rows.Close()

	games := make([]domain.Game, 0)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("iterate game rows", err)
	}

	return games, nil
}

// GetByID returns the game with id, or nil when there is none. An id that is
// not a UUID cannot exist and is reported as absent without a query.
func (r *GameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	row := r.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Update replaces the mutable fields of g and returns the stored row, or nil
// when no game with g.ID exists.
func (r *GameRepository) Update(ctx context.Context, g *domain.Game) (*domain.Game, error) {
	if _, err := uuid.Parse(g.ID); err != nil {
		return nil, nil
	}
	now := r.timestamp()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable("begin update game", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE games
		SET title = $2, price = $3::numeric, description = $4, release_date = $5,
		    developer = $6, publisher = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+gameColumns,
		g.ID, g.Title, g.Price.String(), g.Description, g.ReleaseDate.UTC(), g.Developer, g.Publisher, now,
	)
	updated, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := writeMarker(ctx, tx, g.ID, domain.OutboxOpIndex, updated.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.StoreUnavailable("commit update game", err)
	}
	return updated, nil
}

// Delete removes the game with id. A missing row is not an error and leaves
// no marker behind.
func (r *GameRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperrors.StoreUnavailable("begin delete game", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return apperrors.StoreUnavailable("delete game", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	if err := writeMarker(ctx, tx, id, domain.OutboxOpRemove, r.timestamp()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.StoreUnavailable("commit delete game", err)
	}
	return nil
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var (
		g     domain.Game
		price string
	)
	if err := row.Scan(
		&g.ID,
		&g.Title,
		&price,
		&g.Description,
		&g.ReleaseDate,
		&g.Developer,
		&g.Publisher,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.StoreUnavailable("scan game", err)
	}

	p, err := domain.NewPrice(price)
	if err != nil {
		return nil, fmt.Errorf("scan game %s: %w", g.ID, err)
	}
	g.Price = p
	g.ReleaseDate = g.ReleaseDate.UTC()
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return &g, nil
}
