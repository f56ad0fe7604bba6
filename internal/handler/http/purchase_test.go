package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CloudGames/internal/domain"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
)

func TestPurchase_Success(t *testing.T) {
	api := newTestAPI()
	g := sampleGame("Elden Ring", "249.90", time.Date(2022, 2, 25, 0, 0, 0, 0, time.UTC))
	api.seed(t, g)

	rec := api.do(t, http.MethodPost, "/api/games/"+g.ID+"/purchase", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var record domain.PurchaseRecord
	decodeData(t, rec, &record)
	assert.Equal(t, g.ID, record.GameID)
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", record.PaymentID)
	assert.True(t, record.Amount.Equal(domain.MustPrice("249.90")))

	require.Len(t, api.payments.requests, 1)
	assert.Equal(t, record.OrderID, api.payments.requests[0].OrderID)
	assert.Equal(t, "user-1", api.payments.requests[0].UserID)
}

func TestPurchase_UnknownGame(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/games/6f1c3c0e-8d8a-4d8e-9a49-000000000000/purchase", userToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "GAME_NOT_FOUND", decodeResponse(t, rec).Error.Code)
	assert.Empty(t, api.payments.requests)
}

func TestPurchase_PaymentFailure(t *testing.T) {
	api := newTestAPI()
	g := sampleGame("Elden Ring", "249.90", time.Date(2022, 2, 25, 0, 0, 0, 0, time.UTC))
	api.seed(t, g)
	api.payments.err = apperrors.PaymentService("payment service returned status 402", nil)

	rec := api.do(t, http.MethodPost, "/api/games/"+g.ID+"/purchase", userToken, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "PAYMENT_SERVICE_ERROR", resp.Error.Code)
}

func TestPurchase_RateLimitedPerUser(t *testing.T) {
	api := newTestAPI(func(cfg *RouterConfig) {
		cfg.PurchaseRPS = 0.001
		cfg.PurchaseBurst = 2
	})
	g := sampleGame("Elden Ring", "249.90", time.Date(2022, 2, 25, 0, 0, 0, 0, time.UTC))
	api.seed(t, g)

	path := "/api/games/" + g.ID + "/purchase"
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, path, userToken, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, path, userToken, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, api.do(t, http.MethodPost, path, userToken, nil).Code)

	// Another caller has its own bucket.
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, path, adminToken, nil).Code)
	assert.Len(t, api.payments.requests, 3)
}
