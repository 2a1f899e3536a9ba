package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"adforge/internal/render"
	"adforge/internal/storage"
	"adforge/internal/timeline"
)

// stubRunner stands in for ffmpeg and just materializes the output file.
type stubRunner struct{ calls int }

func (s *stubRunner) Run(_ context.Context, args ...string) error {
	s.calls++
	return os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
}

func newTimelineRouter(t *testing.T) (*chi.Mux, *storage.LocalObjectStore) {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	store := storage.NewLocalObjectStore(files, "http://localhost/v1/artifacts/serve", "secret")
	engine, err := render.New(render.Options{
		WorkDir: t.TempDir(),
		Files:   files,
		Store:   store,
		Runner:  &stubRunner{},
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	app := &App{
		Store:     store,
		Timelines: timeline.NewManager(),
		Engine:    engine,
		Logger:    zerolog.Nop(),
	}

	r := chi.NewRouter()
	r.Route("/v1/projects/{projectID}/timeline", func(r chi.Router) {
		r.Get("/", app.GetTimeline)
		r.Post("/clips", app.AddClip)
		r.Post("/clips/{clipID}/trim", app.TrimClip)
		r.Post("/clips/{clipID}/split", app.SplitClip)
		r.Delete("/clips/{clipID}", app.DeleteClip)
		r.Post("/overlays", app.AddOverlay)
		r.Post("/undo", app.UndoTimeline)
		r.Post("/redo", app.RedoTimeline)
		r.Post("/preview", app.RenderPreview)
	})
	return r, store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope from %s: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func timelineFrom(t *testing.T, env envelope) timelineResponse {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	var resp timelineResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	return resp
}

func TestTimelineEditFlow(t *testing.T) {
	router, store := newTimelineRouter(t)
	base := "/v1/projects/proj/timeline"

	if _, err := store.Files().Write(context.Background(), "generated/proj/src.mp4", []byte("source")); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	rec, env := doJSON(t, router, http.MethodPost, base+"/clips",
		map[string]any{"artifactKey": "generated/proj/src.mp4", "sourceDuration": 10.0})
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("add clip: %d %+v", rec.Code, env)
	}
	tl := timelineFrom(t, env)
	if len(tl.Clips) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(tl.Clips))
	}
	clipID := tl.Clips[0].ID

	rec, env = doJSON(t, router, http.MethodPost, base+"/clips/"+clipID+"/trim",
		map[string]any{"start": 2.0, "end": 8.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("trim: %d %+v", rec.Code, env)
	}
	if tl = timelineFrom(t, env); tl.Clips[0].TrimStart != 2 || tl.Clips[0].TrimEnd != 8 {
		t.Fatalf("trim not applied: %+v", tl.Clips[0])
	}

	rec, env = doJSON(t, router, http.MethodPost, base+"/clips/"+clipID+"/split",
		map[string]any{"at": 3.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("split: %d %+v", rec.Code, env)
	}
	if tl = timelineFrom(t, env); len(tl.Clips) != 2 {
		t.Fatalf("split produced %d clips", len(tl.Clips))
	}
	if tl.Clips[0].Duration+tl.Clips[1].Duration != 6 {
		t.Fatalf("split lost duration: %+v", tl.Clips)
	}

	// Undo the split, redo it back.
	rec, env = doJSON(t, router, http.MethodPost, base+"/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo: %d %+v", rec.Code, env)
	}
	if tl = timelineFrom(t, env); len(tl.Clips) != 1 {
		t.Fatalf("undo left %d clips", len(tl.Clips))
	}
	rec, env = doJSON(t, router, http.MethodPost, base+"/redo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("redo: %d %+v", rec.Code, env)
	}
	if tl = timelineFrom(t, env); len(tl.Clips) != 2 {
		t.Fatalf("redo left %d clips", len(tl.Clips))
	}

	rec, env = doJSON(t, router, http.MethodPost, base+"/overlays",
		map[string]any{"text": "Buy now", "x": 0.5, "y": 0.9, "startTime": 0.0, "endTime": 2.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("add overlay: %d %+v", rec.Code, env)
	}
	if tl = timelineFrom(t, env); len(tl.Overlays) != 1 || tl.Overlays[0].Text != "Buy now" {
		t.Fatalf("overlay missing: %+v", tl.Overlays)
	}
}

func TestTimelineValidationErrors(t *testing.T) {
	router, _ := newTimelineRouter(t)
	base := "/v1/projects/proj/timeline"

	rec, env := doJSON(t, router, http.MethodPost, base+"/clips/nope/trim",
		map[string]any{"start": 0.0, "end": 1.0})
	if rec.Code != http.StatusNotFound || env.Code != "NOT_FOUND" {
		t.Fatalf("missing clip: %d %+v", rec.Code, env)
	}

	rec, env = doJSON(t, router, http.MethodPost, base+"/undo", nil)
	if rec.Code != http.StatusBadRequest || env.Retryable {
		t.Fatalf("empty undo: %d %+v", rec.Code, env)
	}
}

func TestRenderPreviewStoresResult(t *testing.T) {
	router, store := newTimelineRouter(t)
	base := "/v1/projects/proj/timeline"

	if _, err := store.Files().Write(context.Background(), "generated/proj/src.mp4", []byte("source")); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	if rec, env := doJSON(t, router, http.MethodPost, base+"/clips",
		map[string]any{"artifactKey": "generated/proj/src.mp4", "sourceDuration": 10.0}); rec.Code != http.StatusOK {
		t.Fatalf("add clip: %d %+v", rec.Code, env)
	}

	rec, env := doJSON(t, router, http.MethodPost, base+"/preview", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("preview: %d %+v", rec.Code, env)
	}
	out, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data %T", env.Data)
	}
	key, _ := out["key"].(string)
	if key == "" {
		t.Fatalf("preview returned no key: %+v", out)
	}
	if _, err := store.Files().Stat(key); err != nil {
		t.Fatalf("stored preview missing: %v", err)
	}
}
