package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/repository"
	"github.com/utafrali/CloudGames/internal/search"
	"github.com/utafrali/CloudGames/pkg/pagination"
)

// --- Mock Repository ---

type mockGameRepository struct {
	mock.Mock
}

func (m *mockGameRepository) Create(ctx context.Context, game *domain.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *mockGameRepository) List(ctx context.Context) ([]domain.Game, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Game), args.Error(1)
}

func (m *mockGameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Game), args.Error(1)
}

func (m *mockGameRepository) Update(ctx context.Context, game *domain.Game) (*domain.Game, error) {
	args := m.Called(ctx, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Game), args.Error(1)
}

func (m *mockGameRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Outbox ---

type mockOutbox struct {
	mock.Mock
}

func (m *mockOutbox) Ack(ctx context.Context, gameID string, op domain.OutboxOperation, version time.Time) error {
	args := m.Called(ctx, gameID, op, version)
	return args.Error(0)
}

func (m *mockOutbox) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEntry, error) {
	args := m.Called(ctx, limit, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxEntry), args.Error(1)
}

func (m *mockOutbox) Complete(ctx context.Context, entry domain.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockOutbox) Reschedule(ctx context.Context, entry domain.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockOutbox) CountPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- Mock Indexer ---

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) Index(ctx context.Context, game *domain.Game) error {
	return m.Called(ctx, game).Error(0)
}

func (m *mockIndexer) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Mock Searcher ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, text string, p pagination.Params) (*search.Result, error) {
	args := m.Called(ctx, text, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

func (m *mockSearcher) Popular(ctx context.Context, top int) ([]domain.Game, error) {
	args := m.Called(ctx, top)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Game), args.Error(1)
}

// --- Mock Cache ---

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, top int) (repository.PopularLookup, error) {
	args := m.Called(ctx, top)
	return args.Get(0).(repository.PopularLookup), args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, generation int64, top int, games []domain.Game) error {
	return m.Called(ctx, generation, top, games).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Mock Payments ---

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) CreatePayment(ctx context.Context, req domain.PaymentRequest) (uuid.UUID, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// --- Recording Publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) record(t string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
	return p.err
}

func (p *recordingPublisher) PublishGameCreated(context.Context, *domain.Game) error {
	return p.record("game.created")
}

func (p *recordingPublisher) PublishGameUpdated(context.Context, *domain.Game) error {
	return p.record("game.updated")
}

func (p *recordingPublisher) PublishGameDeleted(context.Context, string) error {
	return p.record("game.deleted")
}

func (p *recordingPublisher) PublishGamePurchased(context.Context, *domain.PurchaseRecord) error {
	return p.record("game.purchased")
}

// --- In-memory record store ---

// memoryRepository is a GameRepository over a map, used by scenario tests.
type memoryRepository struct {
	mu    sync.Mutex
	games map[string]domain.Game
	clock time.Time
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		games: make(map[string]domain.Game),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepository) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memoryRepository) Create(_ context.Context, g *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	g.CreatedAt, g.UpdatedAt = now, now
	r.games[g.ID] = *g
	return nil
}

func (r *memoryRepository) List(context.Context) ([]domain.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*domain.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *memoryRepository) Update(_ context.Context, g *domain.Game) (*domain.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.games[g.ID]
	if !ok {
		return nil, nil
	}
	updated := *g
	updated.CreatedAt = cur.CreatedAt
	updated.UpdatedAt = r.tick()
	r.games[g.ID] = updated
	return &updated, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, id)
	return nil
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eldenRingFields() domain.GameFields {
	return domain.GameFields{
		Title:       "Elden Ring",
		Price:       domain.MustPrice("299.90"),
		Description: domain.StringPtr("Action RPG in the Lands Between"),
		ReleaseDate: time.Date(2022, 2, 25, 0, 0, 0, 0, time.UTC),
		Developer:   domain.StringPtr("FromSoftware"),
		Publisher:   domain.StringPtr("Bandai Namco"),
	}
}
