package api

import (
	"errors"
	"net/http"

	"github.com/gitmanhimanshu/verdantia/internal/games"
	"github.com/gitmanhimanshu/verdantia/internal/middleware"
	"github.com/gitmanhimanshu/verdantia/internal/service"
	"github.com/gitmanhimanshu/verdantia/internal/upstream"
	"github.com/gitmanhimanshu/verdantia/internal/util"
	"github.com/gitmanhimanshu/verdantia/internal/vouchers"
)

// writeServiceError maps service errors onto the gateway's error taxonomy.
// Platform messages pass through with the platform's status; everything
// unrecognized is treated as an upstream transport failure.
func writeServiceError(w http.ResponseWriter, r *http.Request, fallbackCode string, err error) {
	rid := middleware.RequestID(r.Context())

	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, service.ErrInvalidSession):
		util.WriteError(w, http.StatusUnauthorized, "unauthorized", "session is no longer valid", rid)
	case errors.Is(err, service.ErrSubmitInFlight):
		util.WriteError(w, http.StatusConflict, "submit_in_flight", "a submission is already in progress", rid)
	case errors.Is(err, service.ErrRedeemInFlight):
		util.WriteError(w, http.StatusConflict, "redeem_in_flight", "a redemption is already in progress", rid)
	case errors.Is(err, vouchers.ErrInsufficientPoints):
		util.WriteError(w, http.StatusBadRequest, "insufficient_points", "not enough points for this voucher", rid)
	case errors.Is(err, service.ErrUnknownVoucher):
		util.WriteError(w, http.StatusNotFound, "unknown_voucher", "voucher not found", rid)
	case errors.Is(err, service.ErrInvalidConfirm):
		util.WriteError(w, http.StatusConflict, "confirm_invalid", "delete confirmation is missing or expired", rid)
	case errors.Is(err, service.ErrBadStep):
		util.WriteError(w, http.StatusBadRequest, "bad_step", err.Error(), rid)
	case errors.Is(err, service.ErrRoleNotAllowed):
		util.WriteError(w, http.StatusForbidden, "forbidden", err.Error(), rid)
	case errors.Is(err, service.ErrValidation):
		util.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), rid)
	case errors.Is(err, games.ErrGameNotFound):
		util.WriteError(w, http.StatusNotFound, "game_not_found", "game not found", rid)
	case errors.Is(err, games.ErrGameComplete):
		util.WriteError(w, http.StatusConflict, "game_complete", "game is already complete", rid)
	case errors.Is(err, games.ErrGameOver):
		util.WriteError(w, http.StatusConflict, "game_over", "no lives left", rid)
	case errors.Is(err, games.ErrCardUnavailable),
		errors.Is(err, games.ErrUnknownSpecies),
		errors.Is(err, games.ErrBadCoordinates):
		util.WriteError(w, http.StatusBadRequest, "bad_move", err.Error(), rid)
	case errors.As(err, &apiErr):
		util.WriteError(w, apiErr.Status, fallbackCode, apiErr.Message, rid)
	default:
		util.WriteError(w, http.StatusBadGateway, "upstream_unreachable", err.Error(), rid)
	}
}
