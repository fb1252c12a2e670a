package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/pkg/authsdk"
	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

const readyTimeout = 2 * time.Second

// ReadyzHandler godoc
//
//	@Summary		Readiness check
//	@Description	Checks the database and, when configured, the shared cache
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := &authsdk.HealthChecks{Database: "ok", Cache: "disabled"}
		status, code := "ok", http.StatusOK

		if err := st.Ping(ctx); err != nil {
			checks.Database = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}
		if cache != nil {
			checks.Cache = "ok"
			if err := cache(ctx); err != nil {
				checks.Cache = "error: " + err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
