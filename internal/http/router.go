package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"adforge/internal/http/handlers"
	"adforge/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger, allowedOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.CORS(allowedOrigins),
		middleware.RateLimit(300, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/artifacts", func(r chi.Router) {
		r.Get("/serve", app.ServeArtifact)
		r.Head("/serve", app.ServeArtifact)
		r.Get("/cache-stats", app.CacheStats)
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.CreateJob)
		r.Get("/{id}", app.GetJob)
	})

	r.Route("/v1/projects/{projectID}", func(r chi.Router) {
		r.Get("/archive", app.ArchiveProject)

		r.Route("/timeline", func(r chi.Router) {
			r.Get("/", app.GetTimeline)
			r.Post("/clips", app.AddClip)
			r.Post("/clips/{clipID}/trim", app.TrimClip)
			r.Post("/clips/{clipID}/split", app.SplitClip)
			r.Post("/clips/{clipID}/reorder", app.ReorderClip)
			r.Delete("/clips/{clipID}", app.DeleteClip)
			r.Post("/overlays", app.AddOverlay)
			r.Delete("/overlays/{overlayID}", app.RemoveOverlay)
			r.Post("/undo", app.UndoTimeline)
			r.Post("/redo", app.RedoTimeline)
			r.Post("/preview", app.RenderPreview)
			r.Post("/stitch", app.StitchTimeline)
		})
	})

	r.Post("/v1/cleanup/run", app.RunCleanup)

	return r
}
