package handlers

import (
	"crypto/subtle"
	"net/http"

	"adforge/internal/domain"
)

// RunCleanup triggers a full scheduled cleanup pass. Guarded by a shared
// secret; the comparison is constant time.
func (a *App) RunCleanup(w http.ResponseWriter, r *http.Request) {
	if a.CleanupSecret == "" {
		a.fail(w, domain.NewAuthentication("cleanup trigger is not configured"))
		return
	}
	presented := r.Header.Get("X-Cleanup-Secret")
	if subtle.ConstantTimeCompare([]byte(presented), []byte(a.CleanupSecret)) != 1 {
		a.fail(w, domain.NewAuthentication("invalid cleanup secret"))
		return
	}

	sweep := a.Cleanup.RunScheduledCleanup(r.Context())
	a.ok(w, http.StatusOK, sweep)
}
