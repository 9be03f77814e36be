package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengrid/greengrid/pkg/types"
)

func TestFeedback(t *testing.T) {
	env := newTestEnv(t)
	h := env.srv.setupHandler()

	t.Run("MissingSentiment", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/feedback", feedbackRequest{Comment: "hmm"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "sentiment is required")
	})

	t.Run("Submit", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/feedback", feedbackRequest{
			HouseholdID: "home",
			Sentiment:   "positive",
			Comment:     "clear advice",
			Extra:       map[string]string{"advisoryID": "a1"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		f := decode[types.Feedback](t, w)
		assert.NotEmpty(t, f.ID)
		assert.Equal(t, "home", f.HouseholdID)
		assert.Equal(t, testNow, f.Timestamp)
	})

	t.Run("List", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/feedback?householdID=home", nil)
		require.Equal(t, http.StatusOK, w.Code)
		feedback := decode[[]types.Feedback](t, w)
		require.Len(t, feedback, 1)
		assert.Equal(t, "positive", feedback[0].Sentiment)
		assert.Equal(t, "a1", feedback[0].Extra["advisoryID"])
	})

	t.Run("InvalidLimit", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/feedback?limit=x", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
