package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

type feedbackRequest struct {
	HouseholdID string            `json:"householdID"`
	Sentiment   string            `json:"sentiment"`
	Comment     string            `json:"comment"`
	Extra       map[string]string `json:"extra"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req feedbackRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode feedback request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Sentiment == "" {
		writeJSONError(w, "sentiment is required", http.StatusBadRequest)
		return
	}
	session, ok := s.lookupHousehold(w, req.HouseholdID)
	if !ok {
		return
	}

	feedback := types.Feedback{
		ID:          uuid.NewString(),
		HouseholdID: session.ID(),
		Sentiment:   req.Sentiment,
		Comment:     req.Comment,
		UserID:      requestEmail(r),
		Extra:       req.Extra,
		Timestamp:   s.now().UTC(),
	}

	if err := s.storage.InsertFeedback(ctx, feedback); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to insert feedback", slog.Any("error", err))
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(feedback); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := s.lookupHousehold(w, r.URL.Query().Get("householdID"))
	if !ok {
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	feedback, err := s.storage.ListFeedback(ctx, session.ID(), limit)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list feedback", slog.Any("error", err))
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if feedback == nil {
		feedback = []types.Feedback{}
	}
	writeJSON(w, feedback)
}
