package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/CloudGames/internal/service"
	"github.com/utafrali/CloudGames/pkg/httputil"
)

// SearchHandler serves the read-only search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// Search handles GET /api/games/search?q=&page=&pageSize=
// @Summary Full-text game search
// @Tags search
// @Produce json
// @Param q query string true "Search text"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 100)" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/games/search [get]
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.service.Search(r.Context(), q.Get("q"), intParam(q.Get("page")), intParam(q.Get("pageSize")))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

// Popular handles GET /api/games/search/popular?top=
// @Summary Newest releases
// @Tags search
// @Produce json
// @Param top query int false "Number of games (max 50)" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /api/games/search/popular [get]
func (h *SearchHandler) Popular(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.Popular(r.Context(), intParam(r.URL.Query().Get("top")))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, games)
}

// intParam parses a paging value. Missing or malformed values become 0, which
// the service replaces with its default.
func intParam(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
