package app

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/vcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHealth(t *testing.T) {
	app := newTestApplication(t)

	w, r := executeRequest(t, http.MethodGet, "/v1/healthcheck", nil)
	app.routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.HealthcheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, api.HealthcheckResponse{
		Status: "UP",
		SystemInfo: api.SystemInfo{
			Version:     vcs.Version(),
			Environment: "test",
		},
	}, resp)
}
