package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/service"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
	"github.com/utafrali/CloudGames/pkg/httputil"
	"github.com/utafrali/CloudGames/pkg/validator"
)

// IndexSyncHeader is set to "pending" when a write reached the record store
// but the search index has not caught up yet.
const IndexSyncHeader = "X-Index-Sync"

// GamesHandler handles HTTP requests for the game catalog.
type GamesHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewGamesHandler creates a new games HTTP handler.
func NewGamesHandler(svc *service.CatalogService, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// GameRequest is the JSON request body for creating or replacing a game.
type GameRequest struct {
	Title       string        `json:"title" validate:"notblank,max=255"`
	Price       *domain.Price `json:"price" validate:"required"`
	Description *string       `json:"description"`
	ReleaseDate *time.Time    `json:"releaseDate" validate:"required"`
	Developer   *string       `json:"developer"`
	Publisher   *string       `json:"publisher"`
}

// UpdateGameRequest is the body of PUT /api/games, which carries the id
// alongside the fields.
type UpdateGameRequest struct {
	ID string `json:"id" validate:"required"`
	GameRequest
}

func (req *GameRequest) fields() domain.GameFields {
	return domain.GameFields{
		Title:       req.Title,
		Price:       *req.Price,
		Description: req.Description,
		ReleaseDate: *req.ReleaseDate,
		Developer:   req.Developer,
		Publisher:   req.Publisher,
	}
}

// --- Handlers ---

// ListGames handles GET /api/games
// @Summary List all games
// @Tags games
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/games [get]
func (h *GamesHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if games == nil {
		games = []domain.Game{}
	}
	httputil.WriteData(w, http.StatusOK, games)
}

// GetGame handles GET /api/games/{id}
// @Summary Get a game by id
// @Tags games
// @Produce json
// @Param id path string true "Game id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/games/{id} [get]
func (h *GamesHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, game)
}

// CreateGame handles POST /api/games
// @Summary Create a game
// @Tags games
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/games [post]
func (h *GamesHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	game, err := h.service.Create(r.Context(), req.fields())
	h.writeMutation(w, r, http.StatusCreated, game, err)
}

// UpdateGame handles PUT /api/games/{id}
// @Summary Replace a game's fields
// @Tags games
// @Accept json
// @Produce json
// @Param id path string true "Game id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/games/{id} [put]
func (h *GamesHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	game, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.fields())
	h.writeMutation(w, r, http.StatusOK, game, err)
}

// UpdateGameFromBody handles PUT /api/games, where the id travels in the body.
func (h *GamesHandler) UpdateGameFromBody(w http.ResponseWriter, r *http.Request) {
	var req UpdateGameRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	game, err := h.service.Update(r.Context(), req.ID, req.fields())
	h.writeMutation(w, r, http.StatusOK, game, err)
}

// DeleteGame handles DELETE /api/games/{id}
// @Summary Delete a game
// @Tags games
// @Param id path string true "Game id"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/games/{id} [delete]
func (h *GamesHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, apperrors.ErrConsistencyGap) {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err != nil {
		w.Header().Set(IndexSyncHeader, "pending")
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeMutation reports a successful store write with status even when the
// index lagged behind, flagging the lag in IndexSyncHeader.
func (h *GamesHandler) writeMutation(w http.ResponseWriter, r *http.Request, status int, game *domain.Game, err error) {
	if err != nil {
		var gap *service.ConsistencyGapError
		if !errors.As(err, &gap) || game == nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		w.Header().Set(IndexSyncHeader, "pending")
	}
	httputil.WriteData(w, status, game)
}
