// Package handlers exposes the pipeline over HTTP: artifact serving with
// range support, job submission and status, timeline editing, and the
// cleanup trigger.
package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"adforge/internal/cache"
	"adforge/internal/cleanup"
	"adforge/internal/domain"
	"adforge/internal/render"
	"adforge/internal/storage"
	"adforge/internal/timeline"
)

// App carries the handler dependencies. Repositories may be nil in tests or
// single-process deployments; handlers degrade to in-memory state.
type App struct {
	Jobs      domain.JobRepository
	Clips     domain.ClipRepository
	Overlays  domain.OverlayRepository
	Artifacts domain.ArtifactRepository

	Store     *storage.LocalObjectStore
	Cache     *cache.Cache
	Timelines *timeline.Manager
	Engine    *render.Engine
	Cleanup   *cleanup.Manager

	CleanupSecret string
	Logger        zerolog.Logger

	loadedMu sync.Mutex
	loaded   map[string]bool
}

// envelope is the structured result every caller receives. Retryable tells
// the client whether offering a "retry" action makes sense.
type envelope struct {
	Success   bool             `json:"success"`
	Data      any              `json:"data,omitempty"`
	Error     string           `json:"error,omitempty"`
	Code      domain.ErrorCode `json:"code,omitempty"`
	Retryable bool             `json:"retryable,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) ok(w http.ResponseWriter, code int, data any) {
	a.json(w, code, envelope{Success: true, Data: data})
}

func (a *App) fail(w http.ResponseWriter, err error) {
	a.json(w, domain.HTTPStatus(domain.CodeOf(err)), envelope{
		Success:   false,
		Error:     err.Error(),
		Code:      domain.CodeOf(err),
		Retryable: domain.IsRetryable(err),
	})
}

func (a *App) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidation("malformed request body").WithCause(err)
	}
	return nil
}

// editor returns the project's timeline editor, hydrating it from
// persistence the first time the project is touched.
func (a *App) editor(r *http.Request, projectID string) (*timeline.Editor, error) {
	ed := a.Timelines.Editor(projectID)
	if a.Clips == nil && a.Overlays == nil {
		return ed, nil
	}

	a.loadedMu.Lock()
	defer a.loadedMu.Unlock()
	if a.loaded == nil {
		a.loaded = make(map[string]bool)
	}
	if a.loaded[projectID] {
		return ed, nil
	}

	var clips []domain.Clip
	var overlays []domain.Overlay
	var err error
	if a.Clips != nil {
		if clips, err = a.Clips.ListByProject(r.Context(), projectID); err != nil {
			return nil, err
		}
	}
	if a.Overlays != nil {
		if overlays, err = a.Overlays.ListByProject(r.Context(), projectID); err != nil {
			return nil, err
		}
	}
	ed.Load(clips, overlays)
	a.loaded[projectID] = true
	return ed, nil
}

// persistTimeline mirrors the editor state into persistence. Best effort:
// the in-memory editor stays authoritative and a write failure is logged,
// not surfaced.
func (a *App) persistTimeline(r *http.Request, projectID string, ed *timeline.Editor) {
	if a.Clips != nil {
		if err := a.Clips.ReplaceAll(r.Context(), projectID, ed.Clips()); err != nil {
			a.Logger.Error().Err(err).Str("project_id", projectID).Msg("persist clips")
		}
	}
	if a.Overlays != nil {
		if err := a.Overlays.ReplaceAll(r.Context(), projectID, ed.Overlays()); err != nil {
			a.Logger.Error().Err(err).Str("project_id", projectID).Msg("persist overlays")
		}
	}
}
