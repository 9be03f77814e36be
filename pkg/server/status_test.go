package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengrid/greengrid/pkg/common"
	"github.com/greengrid/greengrid/pkg/types"
)

func TestStatus(t *testing.T) {
	env := newTestEnv(t, "home", "cottage")
	h := env.srv.setupHandler()

	settings := types.DefaultSettings()
	settings.Pause = true
	require.NoError(t, env.db.SetSettings(context.Background(), "cottage", settings, types.CurrentSettingsVersion))

	w := do(t, h, http.MethodPost, "/api/advise", map[string]string{"householdID": "home"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[types.SystemStatus](t, w)

	assert.Equal(t, common.Version(), status.Version)
	assert.Equal(t, testNow, status.Timestamp)
	assert.Equal(t, 0, status.LiveClients)
	require.Len(t, status.Households, 2)

	home := status.Households[0]
	assert.Equal(t, "home", home.ID)
	assert.False(t, home.LastUpdate.IsZero())
	assert.Equal(t, types.DecisionUseSolarBuyRest, home.LastDecision)
	assert.InDelta(t, 1.0, home.Battery.ChargeKWH, 1e-9)
	assert.False(t, home.Paused)

	cottage := status.Households[1]
	assert.True(t, cottage.LastUpdate.IsZero())
	assert.True(t, cottage.Paused)
	assert.Equal(t, 10.0, cottage.Battery.ChargeKWH)
}
