package server

import (
	"log/slog"
	"net/http"

	"github.com/greengrid/greengrid/pkg/common"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

func (s *Server) handleListHouseholds(w http.ResponseWriter, r *http.Request) {
	sessions := s.households.Sessions()
	out := make([]types.HouseholdStatus, 0, len(sessions))
	for _, session := range sessions {
		cfg := session.Config()
		out = append(out, types.HouseholdStatus{
			ID:      cfg.ID,
			Name:    cfg.Name,
			Battery: session.Battery(),
		})
	}
	writeJSON(w, out)
}

// handleStatus reports, per household, when it was last evaluated and which
// collaborators fell back in that run.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := types.SystemStatus{
		Timestamp:   s.now().UTC(),
		Version:     common.Version(),
		Households:  []types.HouseholdStatus{},
		LiveClients: s.hub.ClientCount(),
	}
	for _, session := range s.households.Sessions() {
		cfg := session.Config()
		hs := types.HouseholdStatus{
			ID:      cfg.ID,
			Name:    cfg.Name,
			Battery: session.Battery(),
		}

		settings, err := s.coordinator.Settings(ctx, cfg.ID)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.String("householdID", cfg.ID), slog.Any("error", err))
			writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
			return
		}
		hs.Paused = settings.Pause

		a, err := s.storage.GetLatestAdvisory(ctx, cfg.ID)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get latest advisory", slog.String("householdID", cfg.ID), slog.Any("error", err))
			writeJSONError(w, "failed to get latest advisory", http.StatusInternalServerError)
			return
		}
		if a != nil {
			hs.LastUpdate = a.Timestamp
			hs.LastDecision = a.Result.Decision
			hs.Fallbacks = a.Fallbacks
		}
		status.Households = append(status.Households, hs)
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status)
}
