package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

type settingsRequest struct {
	HouseholdID string `json:"householdID"`
	types.Settings
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := s.lookupHousehold(w, r.URL.Query().Get("householdID"))
	if !ok {
		return
	}

	settings, err := s.coordinator.Settings(ctx, session.ID())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req settingsRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	session, ok := s.lookupHousehold(w, req.HouseholdID)
	if !ok {
		return
	}

	if err := req.Settings.Validate(); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UtilityProvider != "" && !slices.Contains(s.utilities.Names(), req.UtilityProvider) {
		writeJSONError(w, "unknown utility provider", http.StatusBadRequest)
		return
	}

	if err := s.storage.SetSettings(ctx, session.ID(), req.Settings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"settings updated",
		slog.String("householdID", session.ID()),
		slog.String("email", requestEmail(r)),
		slog.Bool("pause", req.Pause),
		slog.Float64("priceThreshold", req.PriceThreshold),
	)
	writeJSON(w, req.Settings)
}
