package app

import (
	"net/http"

	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/vcs"
)

func (app *application) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthcheckResponse{
		Status: "UP",
		SystemInfo: api.SystemInfo{
			Version:     vcs.Version(),
			Environment: app.config.Env,
		},
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
