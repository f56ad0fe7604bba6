package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CloudGames/internal/domain"
)

func TestCreateGame_Success(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/games", adminToken, eldenRingBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get(IndexSyncHeader))

	var got domain.Game
	decodeData(t, rec, &got)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Elden Ring", got.Title)
	assert.True(t, got.Price.Equal(domain.MustPrice("299.90")))
	assert.Equal(t, "Bandai Namco", domain.Deref(got.Publisher))

	_, indexed := api.index.Get(got.ID)
	assert.True(t, indexed)
}

func TestCreateGame_ValidationError(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/games", adminToken, map[string]any{"title": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "title")
	assert.Contains(t, resp.Error.Fields, "price")
	assert.Contains(t, resp.Error.Fields, "releaseDate")
}

func TestCreateGame_InvalidJSON(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/games", adminToken, `{"title":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeResponse(t, rec).Error.Code)
}

func TestCreateGame_NegativePrice(t *testing.T) {
	api := newTestAPI()
	body := eldenRingBody()
	body["price"] = -1

	rec := api.do(t, http.MethodPost, "/api/games", adminToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, api.index.Len())
}

func TestCreateGame_IndexDownStillCreated(t *testing.T) {
	api := newTestAPI()
	api.index.down = true

	rec := api.do(t, http.MethodPost, "/api/games", adminToken, eldenRingBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", rec.Header().Get(IndexSyncHeader))

	var got domain.Game
	decodeData(t, rec, &got)
	stored, err := api.store.GetByID(t.Context(), got.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestListGames(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodGet, "/api/games", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	api.seed(t, sampleGame("Hollow Knight", "59.90", time.Date(2017, 2, 24, 0, 0, 0, 0, time.UTC)))
	api.seed(t, sampleGame("Celeste", "36.99", time.Date(2018, 1, 25, 0, 0, 0, 0, time.UTC)))

	rec = api.do(t, http.MethodGet, "/api/games", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var games []domain.Game
	decodeData(t, rec, &games)
	require.Len(t, games, 2)
	assert.Equal(t, "Celeste", games[0].Title)
}

func TestGetGame(t *testing.T) {
	api := newTestAPI()
	g := sampleGame("Hollow Knight", "59.90", time.Date(2017, 2, 24, 0, 0, 0, 0, time.UTC))
	api.seed(t, g)

	rec := api.do(t, http.MethodGet, "/api/games/"+g.ID, userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Game
	decodeData(t, rec, &got)
	assert.Equal(t, g.ID, got.ID)
}

func TestGetGame_NotFound(t *testing.T) {
	api := newTestAPI()

	for _, id := range []string{"6f1c3c0e-8d8a-4d8e-9a49-000000000000", "not-a-uuid"} {
		rec := api.do(t, http.MethodGet, "/api/games/"+id, userToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, id)
		assert.Equal(t, "NOT_FOUND", decodeResponse(t, rec).Error.Code)
	}
}

func TestUpdateGame_PriceChangeReachesSearch(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/games", adminToken, eldenRingBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Game
	decodeData(t, rec, &created)

	body := eldenRingBody()
	body["price"] = 249.90
	rec = api.do(t, http.MethodPut, "/api/games/"+created.ID, adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Game
	decodeData(t, rec, &updated)
	assert.True(t, updated.Price.Equal(domain.MustPrice("249.90")))

	rec = api.do(t, http.MethodGet, "/api/games/search?q=elden", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []domain.Game `json:"items"`
		Total int64         `json:"total"`
	}
	decodeData(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].Price.Equal(domain.MustPrice("249.90")))
}

func TestUpdateGameFromBody(t *testing.T) {
	api := newTestAPI()
	g := sampleGame("Hollow Knight", "59.90", time.Date(2017, 2, 24, 0, 0, 0, 0, time.UTC))
	api.seed(t, g)

	body := eldenRingBody()
	body["id"] = g.ID
	rec := api.do(t, http.MethodPut, "/api/games", adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Game
	decodeData(t, rec, &got)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, "Elden Ring", got.Title)
}

func TestUpdateGameFromBody_MissingID(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPut, "/api/games", adminToken, eldenRingBody())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeResponse(t, rec).Error.Fields, "id")
}

func TestUpdateGame_NotFoundNeverIndexes(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPut, "/api/games/6f1c3c0e-8d8a-4d8e-9a49-000000000000", adminToken, eldenRingBody())
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, api.index.Len())
}

func TestUpdateGame_IndexDown(t *testing.T) {
	api := newTestAPI()
	g := sampleGame("Hollow Knight", "59.90", time.Date(2017, 2, 24, 0, 0, 0, 0, time.UTC))
	api.seed(t, g)
	api.index.down = true

	rec := api.do(t, http.MethodPut, "/api/games/"+g.ID, adminToken, eldenRingBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", rec.Header().Get(IndexSyncHeader))
}

func TestDeleteGame(t *testing.T) {
	api := newTestAPI()
	g := sampleGame("Hollow Knight", "59.90", time.Date(2017, 2, 24, 0, 0, 0, 0, time.UTC))
	api.seed(t, g)

	rec := api.do(t, http.MethodDelete, "/api/games/"+g.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 0, api.index.Len())

	rec = api.do(t, http.MethodDelete, "/api/games/"+g.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteGame_IndexDown(t *testing.T) {
	api := newTestAPI()
	g := sampleGame("Hollow Knight", "59.90", time.Date(2017, 2, 24, 0, 0, 0, 0, time.UTC))
	api.seed(t, g)
	api.index.down = true

	rec := api.do(t, http.MethodDelete, "/api/games/"+g.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "pending", rec.Header().Get(IndexSyncHeader))

	stored, err := api.store.GetByID(t.Context(), g.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
