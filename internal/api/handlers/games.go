package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/validation"
)

// GameHandler handles HTTP requests for game endpoints.
// It parses and validates requests and delegates to the GameService.
type GameHandler struct {
	gameService *service.GameService
}

// NewGameHandler creates a new GameHandler with the provided service dependency.
func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
	}
}

// respondValidation writes a 400 with per-field details when err is a validation.Error.
func respondValidation(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}
	response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
}

// Games handles GET requests to list every game, newest first.
//
// Endpoint: GET /api/game
// Response: 200 OK with array of model.Game
// Error: 500 Internal Server Error if retrieval fails
func (h *GameHandler) Games(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.ListGames(r.Context())
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveGames)
		return
	}

	response.RespondJSON(w, http.StatusOK, games)
}

// CreateGame handles POST requests to start a new game.
//
// Endpoint: POST /api/game
// Request Body: CreateGameRequest (name, optional initialCapital, currency, startDate, totalDays)
// Response: 201 Created with model.Game
// Error: 400 Bad Request if the body is invalid or validation fails
// Error: 500 Internal Server Error if creation fails
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateGameRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateGame(req); err != nil {
		respondValidation(w, err)
		return
	}

	in := service.CreateGameInput{
		Name:     req.Name,
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
	}
	if req.InitialCapital != nil {
		in.InitialCapital = *req.InitialCapital
	}
	if req.TotalDays != nil {
		in.TotalDays = *req.TotalDays
	}
	if req.StartDate != "" {
		// Already validated.
		in.StartDate, _ = time.Parse("2006-01-02", req.StartDate)
	}

	game, err := h.gameService.CreateGame(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateGame)
		return
	}

	response.RespondJSON(w, http.StatusCreated, game)
}

// GetGame handles GET requests for a game's current state: the game, its
// portfolio summary and every position at the stored marks.
//
// Endpoint: GET /api/game/{uuid}
// Response: 200 OK with model.GameState
// Error: 404 Not Found if the game does not exist
// Error: 500 Internal Server Error if the ledger cannot be replayed
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	state, err := h.gameService.GetState(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveGame)
		return
	}

	response.RespondJSON(w, http.StatusOK, state)
}

// Trade handles POST requests to buy or sell shares.
//
// Endpoint: POST /api/game/{uuid}/trade
// Request Body: TradeRequest (symbol, side, quantity, optional price)
// Response: 201 Created with model.TradeResult
// Error: 400 Bad Request if validation fails or the order is invalid
// Error: 404 Not Found if the game does not exist
// Error: 422 Unprocessable Entity for insufficient funds or shares, a completed game or no price
// Error: 500 Internal Server Error if the trade cannot be persisted
func (h *GameHandler) Trade(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.TradeRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateTrade(req); err != nil {
		respondValidation(w, err)
		return
	}

	in := service.TradeInput{
		Symbol:   req.Symbol,
		Side:     model.Side(strings.ToLower(req.Side)),
		Quantity: req.Quantity,
	}
	if req.Price != nil {
		in.Price = *req.Price
	}

	result, err := h.gameService.ExecuteTrade(r.Context(), chi.URLParam(r, "uuid"), in)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToExecuteTrade)
		return
	}

	response.RespondJSON(w, http.StatusCreated, result)
}

// Advance handles POST requests to move a game to its next day.
//
// Endpoint: POST /api/game/{uuid}/advance
// Response: 200 OK with model.GameState
// Error: 404 Not Found if the game does not exist
// Error: 422 Unprocessable Entity if the game is completed
func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	state, err := h.gameService.AdvanceDay(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToAdvanceDay)
		return
	}

	response.RespondJSON(w, http.StatusOK, state)
}

// RefreshMarks handles POST requests to re-price held symbols at the current date.
// Symbols without a price are listed under "failed"; that is still a 200.
//
// Endpoint: POST /api/game/{uuid}/marks
// Response: 200 OK with model.MarkRefresh
// Error: 404 Not Found if the game does not exist
func (h *GameHandler) RefreshMarks(w http.ResponseWriter, r *http.Request) {
	refresh, err := h.gameService.RefreshMarks(r.Context(), chi.URLParam(r, "uuid"), metrics.TriggerManual)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRefreshMarks)
		return
	}

	response.RespondJSON(w, http.StatusOK, refresh)
}

// Performance handles GET requests for the XIRR of the portfolio and each position.
// Series without a defined rate are reported with display "N/A".
//
// Endpoint: GET /api/game/{uuid}/performance
// Response: 200 OK with model.PerformanceReport
// Error: 404 Not Found if the game does not exist
func (h *GameHandler) Performance(w http.ResponseWriter, r *http.Request) {
	report, err := h.gameService.Performance(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCalculatePerformance)
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// History handles GET requests for a game's end-of-day valuations.
//
// Endpoint: GET /api/game/{uuid}/history
// Response: 200 OK with array of model.Valuation, day 0 first
// Error: 404 Not Found if the game does not exist
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.gameService.History(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveHistory)
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}

// Ledger handles GET requests for the trade history of one symbol.
//
// Endpoint: GET /api/game/{uuid}/ledger/{symbol}
// Response: 200 OK with array of model.LedgerEntry in sequence order
// Error: 404 Not Found if the game does not exist or never traded the symbol
func (h *GameHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gameService.Ledger(r.Context(), chi.URLParam(r, "uuid"), chi.URLParam(r, "symbol"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveLedger)
		return
	}

	response.RespondJSON(w, http.StatusOK, entries)
}
