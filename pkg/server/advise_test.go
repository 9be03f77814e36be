package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengrid/greengrid/pkg/types"
)

func TestAdvise(t *testing.T) {
	t.Run("RunsPipeline", func(t *testing.T) {
		env := newTestEnv(t)
		h := env.srv.setupHandler()

		w := do(t, h, http.MethodPost, "/api/advise", map[string]string{"householdID": "home"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		a := decode[types.Advisory](t, w)
		assert.Equal(t, "home", a.HouseholdID)
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, 0.30, a.Price.PricePerKWH)
		assert.Equal(t, types.BatteryActionDischarge, a.Result.BatteryAction)
		assert.Equal(t, types.DecisionUseSolarBuyRest, a.Result.Decision)
		assert.NotEmpty(t, a.Report)
		assert.Empty(t, a.Fallbacks)

		w = do(t, h, http.MethodGet, "/api/advisories/latest?householdID=home", nil)
		require.Equal(t, http.StatusOK, w.Code)
		latest := decode[types.Advisory](t, w)
		assert.Equal(t, a.ID, latest.ID)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	})

	t.Run("EmptyBodySingleHousehold", func(t *testing.T) {
		env := newTestEnv(t)
		w := do(t, env.srv.setupHandler(), http.MethodPost, "/api/advise", nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("HouseholdRequired", func(t *testing.T) {
		env := newTestEnv(t, "home", "cottage")
		w := do(t, env.srv.setupHandler(), http.MethodPost, "/api/advise", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "householdID is required")
	})

	t.Run("UnknownHousehold", func(t *testing.T) {
		env := newTestEnv(t)
		w := do(t, env.srv.setupHandler(), http.MethodPost, "/api/advise", map[string]string{"householdID": "nobody"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidBody", func(t *testing.T) {
		env := newTestEnv(t)
		w := do(t, env.srv.setupHandler(), http.MethodPost, "/api/advise", "not an object")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Paused", func(t *testing.T) {
		env := newTestEnv(t)
		settings := types.DefaultSettings()
		settings.Pause = true
		require.NoError(t, env.db.SetSettings(context.Background(), "home", settings, types.CurrentSettingsVersion))

		w := do(t, env.srv.setupHandler(), http.MethodPost, "/api/advise", map[string]string{"householdID": "home"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestLatestAdvisoryNone(t *testing.T) {
	env := newTestEnv(t)
	w := do(t, env.srv.setupHandler(), http.MethodGet, "/api/advisories/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no advisory yet")
}

func TestReport(t *testing.T) {
	env := newTestEnv(t)
	h := env.srv.setupHandler()

	w := do(t, h, http.MethodGet, "/api/report", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/api/advise", nil)
	require.Equal(t, http.StatusOK, w.Code)
	a := decode[types.Advisory](t, w)

	w = do(t, h, http.MethodGet, "/api/report?householdID=home", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, a.Report, w.Body.String())
	assert.Empty(t, w.Header().Get("Content-Disposition"))

	w = do(t, h, http.MethodGet, "/api/report?download=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="advisor_report.txt"`, w.Header().Get("Content-Disposition"))
}
