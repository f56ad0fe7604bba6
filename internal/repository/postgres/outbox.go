package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/repository"
	"github.com/utafrali/CloudGames/pkg/database"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
)

// markerGracePeriod delays the drainer so it does not race the inline sync
// performed by the request that wrote the marker.
const markerGracePeriod = 30 * time.Second

// writeMarker upserts the pending sync marker for gameID inside tx. A newer
// mutation replaces an older marker and resets its retry state.
func writeMarker(ctx context.Context, tx pgx.Tx, gameID string, op domain.OutboxOperation, version time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO index_sync_outbox (game_id, operation, status, attempts, last_error, version, next_attempt_at, updated_at)
		VALUES ($1, $2, 'pending', 0, NULL, $3, clock_timestamp() + make_interval(secs => $4), clock_timestamp())
		ON CONFLICT (game_id) DO UPDATE SET
			operation       = EXCLUDED.operation,
			status          = 'pending',
			attempts        = 0,
			last_error      = NULL,
			version         = EXCLUDED.version,
			next_attempt_at = EXCLUDED.next_attempt_at,
			updated_at      = EXCLUDED.updated_at`,
		gameID, string(op), version, markerGracePeriod.Seconds(),
	)
	if err != nil {
		return apperrors.StoreUnavailable("write index sync marker", err)
	}
	return nil
}

// OutboxRepository implements repository.OutboxRepository using PostgreSQL.
type OutboxRepository struct {
	db database.DBTX
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

// NewOutboxRepository creates a PostgreSQL-backed outbox repository.
func NewOutboxRepository(db database.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Ack deletes the marker left by a mutation whose index sync succeeded.
func (r *OutboxRepository) Ack(ctx context.Context, gameID string, op domain.OutboxOperation, version time.Time) error {
	var err error
	if op == domain.OutboxOpRemove {
		_, err = r.db.Exec(ctx,
			`DELETE FROM index_sync_outbox WHERE game_id = $1 AND operation = 'remove'`,
			gameID,
		)
	} else {
		_, err = r.db.Exec(ctx,
			`DELETE FROM index_sync_outbox WHERE game_id = $1 AND operation = $2 AND version = $3`,
			gameID, string(op), version.UTC(),
		)
	}
	if err != nil {
		return apperrors.StoreUnavailable("ack index sync marker", err)
	}
	return nil
}

// ClaimDue pushes next_attempt_at of up to limit due markers forward by lease
// so no other drainer picks them up, and returns them.
func (r *OutboxRepository) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEntry, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE index_sync_outbox
		SET next_attempt_at = now() + make_interval(secs => $2)
		WHERE game_id IN (
			SELECT game_id FROM index_sync_outbox
			WHERE status = 'pending' AND next_attempt_at <= now()
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING game_id::text, operation, status, attempts, COALESCE(last_error, ''), next_attempt_at, updated_at`,
		limit, lease.Seconds(),
	)
	if err != nil {
		return nil, apperrors.StoreUnavailable("claim index sync markers", err)
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		var (
			e  domain.OutboxEntry
			op string
		)
		if err := rows.Scan(&e.GameID, &op, &e.Status, &e.Attempts, &e.LastError, &e.NextAttemptAt, &e.UpdatedAt); err != nil {
			return nil, apperrors.StoreUnavailable("scan index sync marker", err)
		}
		e.Operation = domain.OutboxOperation(op)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("iterate index sync markers", err)
	}
	return entries, nil
}

// Complete deletes a claimed marker. A marker rewritten after the claim has
// a new updated_at and is left for the next round.
func (r *OutboxRepository) Complete(ctx context.Context, e domain.OutboxEntry) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM index_sync_outbox WHERE game_id = $1 AND updated_at = $2`,
		e.GameID, e.UpdatedAt,
	)
	if err != nil {
		return apperrors.StoreUnavailable("complete index sync marker", err)
	}
	return nil
}

// Reschedule records a failed attempt of a claimed marker.
func (r *OutboxRepository) Reschedule(ctx context.Context, e domain.OutboxEntry) error {
	_, err := r.db.Exec(ctx, `
		UPDATE index_sync_outbox
		SET attempts = $3, last_error = $4, next_attempt_at = $5, status = $6
		WHERE game_id = $1 AND updated_at = $2`,
		e.GameID, e.UpdatedAt, e.Attempts, e.LastError, e.NextAttemptAt, e.Status,
	)
	if err != nil {
		return apperrors.StoreUnavailable("reschedule index sync marker", err)
	}
	return nil
}

// CountPending returns the number of markers with status pending.
func (r *OutboxRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM index_sync_outbox WHERE status = 'pending'`,
	).Scan(&n); err != nil {
		return 0, apperrors.StoreUnavailable("count index sync markers", err)
	}
	return n, nil
}
