package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/repository"
	"github.com/utafrali/CloudGames/internal/search"
)

// Processing results recorded in the processed counter.
const (
	resultSynced      = "synced"
	resultRescheduled = "rescheduled"
	resultParked      = "parked"
)

var (
	processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "games_outbox_processed_total",
		Help: "Index sync markers processed by the outbox drainer",
	}, []string{"operation", "result"})

	pendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "games_outbox_pending",
		Help: "Index sync markers waiting to be applied",
	})
)

// Config holds drainer settings.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int

	// Lease is how long a claimed marker stays invisible to other drainers.
	Lease time.Duration
}

// DefaultConfig returns the drainer defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    50,
		MaxAttempts:  10,
		Lease:        time.Minute,
	}
}

// Worker drains pending index sync markers. It reads the record store at
// drain time, so whatever a marker was written for, the index converges on
// the latest stored state.
type Worker struct {
	outbox  repository.OutboxRepository
	games   repository.GameRepository
	indexer search.Indexer
	cache   repository.PopularCache
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewWorker creates a drainer. cache may be nil.
func NewWorker(
	outbox repository.OutboxRepository,
	games repository.GameRepository,
	indexer search.Indexer,
	cache repository.PopularCache,
	cfg Config,
	logger *slog.Logger,
) *Worker {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	return &Worker{
		outbox:  outbox,
		games:   games,
		indexer: indexer,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Run drains on every poll interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("outbox drainer started",
		slog.Duration("poll_interval", w.cfg.PollInterval),
		slog.Int("batch_size", w.cfg.BatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox drainer stopped")
			return
		case <-ticker.C:
			synced, err := w.DrainOnce(ctx)
			if err != nil {
				w.logger.Error("outbox drain error", slog.String("error", err.Error()))
			} else if synced > 0 {
				w.logger.Info("outbox markers synced", slog.Int("synced", synced))
			}
		}
	}
}

// DrainOnce claims one batch of due markers and applies them. It returns the
// number of markers synced successfully.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	entries, err := w.outbox.ClaimDue(ctx, w.cfg.BatchSize, w.cfg.Lease)
	if err != nil {
		return 0, fmt.Errorf("claim markers: %w", err)
	}

	synced := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if w.process(ctx, e) {
			synced++
		}
	}

	if synced > 0 && w.cache != nil {
		if err := w.cache.Invalidate(ctx); err != nil {
			w.logger.WarnContext(ctx, "failed to invalidate popular games cache",
				slog.String("error", err.Error()),
			)
		}
	}

	if n, err := w.outbox.CountPending(ctx); err == nil {
		pendingGauge.Set(float64(n))
	}
	return synced, nil
}

func (w *Worker) process(ctx context.Context, e domain.OutboxEntry) bool {
	err := w.apply(ctx, e)
	if err == nil {
		if err := w.outbox.Complete(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "failed to complete index sync marker",
				slog.String("game_id", e.GameID),
				slog.String("error", err.Error()),
			)
			return false
		}
		processedTotal.WithLabelValues(string(e.Operation), resultSynced).Inc()
		return true
	}

	e.Attempts++
	e.LastError = err.Error()
	e.NextAttemptAt = w.now().Add(domain.OutboxBackoff(e.Attempts))
	result := resultRescheduled
	if e.Attempts >= w.cfg.MaxAttempts {
		e.Status = domain.OutboxStatusFailed
		result = resultParked
	}

	if rerr := w.outbox.Reschedule(ctx, e); rerr != nil {
		w.logger.ErrorContext(ctx, "failed to reschedule index sync marker",
			slog.String("game_id", e.GameID),
			slog.String("error", rerr.Error()),
		)
		return false
	}
	processedTotal.WithLabelValues(string(e.Operation), result).Inc()

	level := slog.LevelWarn
	if result == resultParked {
		level = slog.LevelError
	}
	w.logger.Log(ctx, level, "index sync attempt failed",
		slog.String("game_id", e.GameID),
		slog.String("operation", string(e.Operation)),
		slog.Int("attempts", e.Attempts),
		slog.String("status", e.Status),
		slog.Time("next_attempt_at", e.NextAttemptAt),
		slog.String("error", err.Error()),
	)
	return false
}

// apply makes the index match the record store for one game.
func (w *Worker) apply(ctx context.Context, e domain.OutboxEntry) error {
	if e.Operation == domain.OutboxOpRemove {
		return w.indexer.Remove(ctx, e.GameID)
	}

	game, err := w.games.GetByID(ctx, e.GameID)
	if err != nil {
		return err
	}
	if game == nil {
		return w.indexer.Remove(ctx, e.GameID)
	}
	return w.indexer.Index(ctx, game)
}
