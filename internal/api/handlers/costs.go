package handlers

import (
	"net/http"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/service"
)

// CostHandler serves trading cost previews.
type CostHandler struct {
	gameService *service.GameService
}

// NewCostHandler creates a new CostHandler.
func NewCostHandler(gameService *service.GameService) *CostHandler {
	return &CostHandler{gameService: gameService}
}

// Quote handles GET requests for the cost breakdown of an order of a given value.
//
// Endpoint: GET /api/costs/quote?value=10000&side=sell&venue=NSE
// Response: 200 OK with model.CostQuote
// Error: 400 Bad Request if a parameter is invalid or the venue is unknown
func (h *CostHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := request.ParseQuoteParams(q.Get("value"), q.Get("side"), q.Get("venue"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	quote, err := h.gameService.QuoteCosts(params.Value, params.Side, params.Venue)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToQuoteCosts)
		return
	}

	response.RespondJSON(w, http.StatusOK, quote)
}
