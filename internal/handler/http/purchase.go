package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CloudGames/internal/service"
	"github.com/utafrali/CloudGames/pkg/httputil"
	"github.com/utafrali/CloudGames/pkg/middleware"
)

// PurchaseHandler handles game purchases.
type PurchaseHandler struct {
	service *service.PurchaseService
	logger  *slog.Logger
}

// NewPurchaseHandler creates a new purchase HTTP handler.
func NewPurchaseHandler(svc *service.PurchaseService, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service: svc,
		logger:  logger,
	}
}

// Purchase handles POST /api/games/{id}/purchase. The buyer is the
// authenticated caller.
// @Summary Buy a game
// @Tags purchases
// @Produce json
// @Param id path string true "Game id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/games/{id}/purchase [post]
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Purchase(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, record)
}
