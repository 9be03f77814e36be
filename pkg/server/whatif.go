package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

// handleWhatIf simulates the user's scenario against a snapshot of the
// household battery using the latest known price.
func (s *Server) handleWhatIf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.WhatIfRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	session, ok := s.lookupHousehold(w, req.HouseholdID)
	if !ok {
		return
	}

	settings, err := s.coordinator.Settings(ctx, session.ID())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	price, err := s.currentPrice(r, session.ID())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get a price", slog.Any("error", err))
		writeJSONError(w, "failed to get a price", http.StatusInternalServerError)
		return
	}

	res, err := session.WhatIf(ctx, req, price, settings)
	if errors.Is(err, controller.ErrInvalidInput) {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	} else if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to simulate", slog.Any("error", err))
		writeJSONError(w, "failed to simulate", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

// currentPrice is the price of the latest advisory, or the fallback price
// when the household has none yet.
func (s *Server) currentPrice(r *http.Request, householdID string) (types.Price, error) {
	ctx := r.Context()
	a, err := s.storage.GetLatestAdvisory(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get latest advisory for price", slog.Any("error", err))
	} else if a != nil {
		return a.Price, nil
	}
	return s.utilities.Fallback().GetCurrentPrice(ctx)
}
