package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CloudGames/internal/auth"
	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/search/memory"
	"github.com/utafrali/CloudGames/internal/service"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
	"github.com/utafrali/CloudGames/pkg/health"
	"github.com/utafrali/CloudGames/pkg/httputil"
	"github.com/utafrali/CloudGames/pkg/middleware"
)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

// --- Fakes ---

type stubTokens struct{}

func (stubTokens) Validate(_ context.Context, token string) (*middleware.Claims, error) {
	switch token {
	case adminToken:
		return &middleware.Claims{UserID: "admin-1", Roles: []string{auth.RoleAdmin}}, nil
	case userToken:
		return &middleware.Claims{UserID: "user-1", Roles: []string{auth.RoleUser}}, nil
	}
	return nil, errors.New("unknown token")
}

type gameStore struct {
	mu    sync.Mutex
	games map[string]domain.Game
	clock time.Time
}

func newGameStore() *gameStore {
	return &gameStore{
		games: make(map[string]domain.Game),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *gameStore) Create(_ context.Context, g *domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(time.Second)
	g.CreatedAt, g.UpdatedAt = s.clock, s.clock
	s.games[g.ID] = *g
	return nil
}

func (s *gameStore) List(context.Context) ([]domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *gameStore) GetByID(_ context.Context, id string) (*domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (s *gameStore) Update(_ context.Context, g *domain.Game) (*domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.games[g.ID]
	if !ok {
		return nil, nil
	}
	s.clock = s.clock.Add(time.Second)
	updated := *g
	updated.CreatedAt, updated.UpdatedAt = cur.CreatedAt, s.clock
	s.games[g.ID] = updated
	return &updated, nil
}

func (s *gameStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	return nil
}

// downIndexer wraps the memory engine and fails writes while down is set.
type downIndexer struct {
	*memory.Engine
	down bool
}

func (d *downIndexer) Index(ctx context.Context, g *domain.Game) error {
	if d.down {
		return apperrors.IndexUnavailable("index game", errors.New("connection refused"))
	}
	return d.Engine.Index(ctx, g)
}

func (d *downIndexer) Remove(ctx context.Context, id string) error {
	if d.down {
		return apperrors.IndexUnavailable("remove game", errors.New("connection refused"))
	}
	return d.Engine.Remove(ctx, id)
}

type fakePayments struct {
	mu       sync.Mutex
	requests []domain.PaymentRequest
	err      error
}

func (f *fakePayments) CreatePayment(_ context.Context, req domain.PaymentRequest) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"), nil
}

// --- Test Helpers ---

type testAPI struct {
	handler  http.Handler
	store    *gameStore
	index    *downIndexer
	payments *fakePayments
}

func newTestAPI(opts ...func(*RouterConfig)) *testAPI {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newGameStore()
	index := &downIndexer{Engine: memory.New()}
	payments := &fakePayments{}

	cfg := RouterConfig{
		ServiceName:    "games-service-test",
		AllowedOrigins: []string{"*"},
		Catalog:        service.NewCatalogService(store, nil, index, nil, nil, logger),
		Search:         service.NewSearchService(index, nil, logger),
		Purchase:       service.NewPurchaseService(store, payments, nil, logger, time.Second),
		Tokens:         stubTokens{},
		Health:         health.NewHandler(),
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testAPI{
		handler:  NewRouter(cfg),
		store:    store,
		index:    index,
		payments: payments,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			rdr = bytes.NewBufferString(s)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			rdr = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// seed stores g in the record store and the index directly.
func (a *testAPI) seed(t *testing.T, g *domain.Game) {
	t.Helper()
	require.NoError(t, a.store.Create(context.Background(), g))
	require.NoError(t, a.index.Engine.Index(context.Background(), g))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// decodeData decodes the data member of the envelope into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func sampleGame(title, price string, released time.Time) *domain.Game {
	return &domain.Game{
		ID:          uuid.NewString(),
		Title:       title,
		Price:       domain.MustPrice(price),
		ReleaseDate: released,
		Developer:   domain.StringPtr("FromSoftware"),
	}
}

func eldenRingBody() map[string]any {
	return map[string]any{
		"title":       "Elden Ring",
		"price":       299.90,
		"description": "Action RPG in the Lands Between",
		"releaseDate": "2022-02-25T00:00:00Z",
		"developer":   "FromSoftware",
		"publisher":   "Bandai Namco",
	}
}
