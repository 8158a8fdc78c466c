package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
)

// parseJSON decodes the request body into T. Unknown fields are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("invalid JSON: %w", err)
	}
	return v, nil
}

// errorStatuses maps domain errors to the status and message clients see.
// Order matters: the first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{apperrors.ErrGameNotFound, http.StatusNotFound},
	{apperrors.ErrPositionNotFound, http.StatusNotFound},

	{apperrors.ErrInvalidGameConfig, http.StatusBadRequest},
	{apperrors.ErrInvalidOrder, http.StatusBadRequest},
	{apperrors.ErrInvalidSide, http.StatusBadRequest},
	{apperrors.ErrInvalidSymbol, http.StatusBadRequest},
	{apperrors.ErrUnknownVenue, http.StatusBadRequest},
	{apperrors.ErrUnknownCurrency, http.StatusBadRequest},

	{apperrors.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{apperrors.ErrInsufficientShares, http.StatusUnprocessableEntity},
	{apperrors.ErrGameCompleted, http.StatusUnprocessableEntity},
	{apperrors.ErrPriceUnavailable, http.StatusUnprocessableEntity},
}

// respondServiceError writes err using the status of the first matching domain
// error. Anything else is a 500 reported under fallback.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			response.RespondError(w, e.status, e.err.Error(), err.Error())
			return
		}
	}

	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(fallback.Error())
	response.RespondError(w, http.StatusInternalServerError, fallback.Error(), err.Error())
}
