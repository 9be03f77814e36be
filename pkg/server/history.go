package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

const (
	defaultHistoryRange = 30 * 24 * time.Hour
	maxHistoryRange     = 31 * 24 * time.Hour
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

func (s *Server) handleAdvisories(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	advisories, end, ok := s.advisoryHistory(w, r, limit)
	if !ok {
		return
	}
	setHistoryCache(w, end, s.now())
	writeJSON(w, advisories)
}

// handleAdvisorySummary summarizes every advisory in the range, ignoring the
// page limit.
func (s *Server) handleAdvisorySummary(w http.ResponseWriter, r *http.Request) {
	advisories, end, ok := s.advisoryHistory(w, r, 0)
	if !ok {
		return
	}
	setHistoryCache(w, end, s.now())
	writeJSON(w, controller.Summarize(advisories))
}

// advisoryHistory loads the advisories of the requested range, newest first.
// A limit of zero loads the whole range.
func (s *Server) advisoryHistory(w http.ResponseWriter, r *http.Request, limit int) ([]types.Advisory, time.Time, bool) {
	ctx := r.Context()
	session, ok := s.lookupHousehold(w, r.URL.Query().Get("householdID"))
	if !ok {
		return nil, time.Time{}, false
	}
	start, end, err := parseTimeRange(r, s.now())
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return nil, time.Time{}, false
	}

	advisories, err := s.storage.GetAdvisories(ctx, session.ID(), start, end, limit)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get advisories", slog.String("householdID", session.ID()), slog.Any("error", err))
		writeJSONError(w, "failed to get advisories", http.StatusInternalServerError)
		return nil, time.Time{}, false
	}
	if advisories == nil {
		advisories = []types.Advisory{}
	}
	return advisories, end, true
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := s.lookupHousehold(w, r.URL.Query().Get("householdID"))
	if !ok {
		return
	}
	start, end, err := parseTimeRange(r, s.now())
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	readings, err := s.storage.GetReadings(ctx, session.ID(), start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get readings", slog.String("householdID", session.ID()), slog.Any("error", err))
		writeJSONError(w, "failed to get readings", http.StatusInternalServerError)
		return
	}
	if readings == nil {
		readings = []types.Reading{}
	}
	setHistoryCache(w, end, s.now())
	writeJSON(w, readings)
}

// setHistoryCache caches ranges that ended before today for a day and
// anything more recent for a minute.
func setHistoryCache(w http.ResponseWriter, end, now time.Time) {
	today := now.Truncate(24 * time.Hour)
	if end.Before(today) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}
}

func parseTimeRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	end := now
	if endStr != "" {
		var err error
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
		}
	}

	start := end.Add(-defaultHistoryRange)
	if startStr != "" {
		var err error
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}
	if end.Sub(start) > maxHistoryRange {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 31 days")
	}
	return start, end, nil
}

func parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit: %q", limitStr)
	}
	return min(limit, maxHistoryLimit), nil
}
