package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_RequiresToken(t *testing.T) {
	api := newTestAPI()

	for _, path := range []string{"/api/games", "/api/games/search?q=ring", "/api/games/search/popular"} {
		rec := api.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := api.do(t, http.MethodGet, "/api/games", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_WritesRequireAdmin(t *testing.T) {
	api := newTestAPI()

	tests := []struct {
		method string
		path   string
	}{
		{method: http.MethodPost, path: "/api/games"},
		{method: http.MethodPut, path: "/api/games"},
		{method: http.MethodPut, path: "/api/games/6f1c3c0e-8d8a-4d8e-9a49-000000000000"},
		{method: http.MethodDelete, path: "/api/games/6f1c3c0e-8d8a-4d8e-9a49-000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, userToken, eldenRingBody())
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
	assert.Equal(t, 0, api.index.Len())
}

func TestRouter_HealthIsPublic(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CORSExposesIndexSyncHeader(t *testing.T) {
	api := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("Origin", "https://store.example.com")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), IndexSyncHeader)
}

func TestRouter_Metrics(t *testing.T) {
	api := newTestAPI()
	api.do(t, http.MethodGet, "/health/live", "", nil)

	rec := api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
