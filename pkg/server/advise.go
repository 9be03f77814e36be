package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/coordinator"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

type adviseRequest struct {
	HouseholdID string `json:"householdID"`
}

func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adviseRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	session, ok := s.lookupHousehold(w, req.HouseholdID)
	if !ok {
		return
	}

	a, err := s.coordinator.Run(ctx, session.ID())
	switch {
	case err == nil:
	case errors.Is(err, coordinator.ErrPaused):
		writeJSONError(w, "advisories are paused", http.StatusConflict)
		return
	case errors.Is(err, coordinator.ErrUnknownHousehold):
		writeJSONError(w, "unknown household", http.StatusNotFound)
		return
	case errors.Is(err, controller.ErrInvalidInput):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	default:
		log.Ctx(ctx).ErrorContext(ctx, "failed to run advisory", slog.String("householdID", session.ID()), slog.Any("error", err))
		writeJSONError(w, "failed to run advisory", http.StatusInternalServerError)
		return
	}

	writeJSON(w, a)
}

func (s *Server) latestAdvisory(w http.ResponseWriter, r *http.Request) (*types.Advisory, bool) {
	ctx := r.Context()
	session, ok := s.lookupHousehold(w, r.URL.Query().Get("householdID"))
	if !ok {
		return nil, false
	}
	a, err := s.storage.GetLatestAdvisory(ctx, session.ID())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest advisory", slog.String("householdID", session.ID()), slog.Any("error", err))
		writeJSONError(w, "failed to get latest advisory", http.StatusInternalServerError)
		return nil, false
	}
	if a == nil {
		writeJSONError(w, "no advisory yet", http.StatusNotFound)
		return nil, false
	}
	return a, true
}

func (s *Server) handleLatestAdvisory(w http.ResponseWriter, r *http.Request) {
	a, ok := s.latestAdvisory(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, a)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	a, ok := s.latestAdvisory(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="advisor_report.txt"`)
	}
	if _, err := w.Write([]byte(a.Report)); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// latestAdvisories feeds newly connected live clients.
func (s *Server) latestAdvisories(ctx context.Context) ([]types.Advisory, error) {
	var out []types.Advisory
	for _, id := range s.households.IDs() {
		a, err := s.storage.GetLatestAdvisory(ctx, id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}
