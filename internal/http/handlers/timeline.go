package handlers

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"adforge/internal/domain"
	"adforge/internal/storage"
	"adforge/internal/timeline"
)

type clipResponse struct {
	ID             string  `json:"id"`
	ArtifactKey    string  `json:"artifactKey"`
	TrimStart      float64 `json:"trimStart"`
	TrimEnd        float64 `json:"trimEnd"`
	SourceDuration float64 `json:"sourceDuration"`
	Order          int     `json:"order"`
	Duration       float64 `json:"duration"`
}

type overlayResponse struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	FontSize    int     `json:"fontSize,omitempty"`
	Color       string  `json:"color,omitempty"`
	BorderColor string  `json:"borderColor,omitempty"`
	BorderWidth int     `json:"borderWidth,omitempty"`
	Background  string  `json:"background,omitempty"`
	ZIndex      int     `json:"zIndex"`
}

type timelineResponse struct {
	ProjectID string            `json:"projectId"`
	Clips     []clipResponse    `json:"clips"`
	Overlays  []overlayResponse `json:"overlays"`
}

func toTimelineResponse(projectID string, ed *timeline.Editor) timelineResponse {
	clips := ed.Clips()
	overlays := ed.Overlays()
	resp := timelineResponse{
		ProjectID: projectID,
		Clips:     make([]clipResponse, 0, len(clips)),
		Overlays:  make([]overlayResponse, 0, len(overlays)),
	}
	for _, c := range clips {
		resp.Clips = append(resp.Clips, clipResponse{
			ID:             c.ID,
			ArtifactKey:    c.ArtifactKey,
			TrimStart:      c.TrimStart,
			TrimEnd:        c.TrimEnd,
			SourceDuration: c.SourceDuration,
			Order:          c.Order,
			Duration:       c.Duration(),
		})
	}
	for _, o := range overlays {
		resp.Overlays = append(resp.Overlays, overlayResponse{
			ID:          o.ID,
			Text:        o.Text,
			X:           o.X,
			Y:           o.Y,
			StartTime:   o.StartTime,
			EndTime:     o.EndTime,
			FontSize:    o.FontSize,
			Color:       o.Color,
			BorderColor: o.BorderColor,
			BorderWidth: o.BorderWidth,
			Background:  o.Background,
			ZIndex:      o.ZIndex,
		})
	}
	return resp
}

// GetTimeline returns the project's clips and overlays in timeline order.
func (a *App) GetTimeline(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	ed, err := a.editor(r, projectID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, toTimelineResponse(projectID, ed))
}

// AddClip appends a source video to the end of the timeline.
func (a *App) AddClip(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req struct {
		ArtifactKey    string  `json:"artifactKey"`
		SourceDuration float64 `json:"sourceDuration"`
	}
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	ed, err := a.editor(r, projectID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if _, err := ed.AddClip(req.ArtifactKey, req.SourceDuration); err != nil {
		a.fail(w, err)
		return
	}
	a.persistTimeline(r, projectID, ed)
	a.ok(w, http.StatusOK, toTimelineResponse(projectID, ed))
}

// TrimClip adjusts one clip's trim bounds.
func (a *App) TrimClip(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	}
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	a.mutateTimeline(w, r, projectID, func(ed *timeline.Editor) error {
		return ed.Trim(chi.URLParam(r, "clipID"), req.Start, req.End)
	})
}

// SplitClip cuts a clip at a playhead offset into it.
func (a *App) SplitClip(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req struct {
		At float64 `json:"at"`
	}
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	a.mutateTimeline(w, r, projectID, func(ed *timeline.Editor) error {
		_, _, err := ed.Split(chi.URLParam(r, "clipID"), req.At)
		return err
	})
}

// DeleteClip removes a clip from the timeline.
func (a *App) DeleteClip(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	a.mutateTimeline(w, r, projectID, func(ed *timeline.Editor) error {
		return ed.Delete(chi.URLParam(r, "clipID"))
	})
}

// ReorderClip moves a clip to a new position.
func (a *App) ReorderClip(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req struct {
		Index int `json:"index"`
	}
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	a.mutateTimeline(w, r, projectID, func(ed *timeline.Editor) error {
		return ed.Reorder(chi.URLParam(r, "clipID"), req.Index)
	})
}

// AddOverlay places a timed text overlay.
func (a *App) AddOverlay(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req overlayResponse
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	a.mutateTimeline(w, r, projectID, func(ed *timeline.Editor) error {
		_, err := ed.AddOverlay(domain.Overlay{
			Text:        req.Text,
			X:           req.X,
			Y:           req.Y,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			FontSize:    req.FontSize,
			Color:       req.Color,
			BorderColor: req.BorderColor,
			BorderWidth: req.BorderWidth,
			Background:  req.Background,
			ZIndex:      req.ZIndex,
		})
		return err
	})
}

// RemoveOverlay deletes an overlay.
func (a *App) RemoveOverlay(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	a.mutateTimeline(w, r, projectID, func(ed *timeline.Editor) error {
		return ed.RemoveOverlay(chi.URLParam(r, "overlayID"))
	})
}

// UndoTimeline reverts the most recent mutation.
func (a *App) UndoTimeline(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	a.mutateTimeline(w, r, projectID, func(ed *timeline.Editor) error {
		if !ed.Undo() {
			return domain.NewValidation("nothing to undo")
		}
		return nil
	})
}

// RedoTimeline re-applies the most recently undone mutation.
func (a *App) RedoTimeline(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	a.mutateTimeline(w, r, projectID, func(ed *timeline.Editor) error {
		if !ed.Redo() {
			return domain.NewValidation("nothing to redo")
		}
		return nil
	})
}

func (a *App) mutateTimeline(w http.ResponseWriter, r *http.Request, projectID string, mutate func(*timeline.Editor) error) {
	ed, err := a.editor(r, projectID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := mutate(ed); err != nil {
		a.fail(w, err)
		return
	}
	a.persistTimeline(r, projectID, ed)
	a.ok(w, http.StatusOK, toTimelineResponse(projectID, ed))
}

// RenderPreview produces a fast low-resolution preview of the current
// timeline and stores it for serving.
func (a *App) RenderPreview(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	ed, err := a.editor(r, projectID)
	if err != nil {
		a.fail(w, err)
		return
	}

	localPath, err := a.Engine.GeneratePreview(r.Context(), ed.Clips(), ed.Overlays(), projectID)
	if err != nil {
		a.fail(w, err)
		return
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		a.fail(w, domain.NewInternal("read preview output").WithCause(err))
		return
	}
	stored, err := a.Store.Store(r.Context(), data, storage.Meta{
		ProjectID: projectID,
		Category:  domain.CategoryPreview,
		MIMEType:  "video/mp4",
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, map[string]string{"key": stored.Key, "url": stored.URL})
}

// StitchTimeline renders the final full-quality video.
func (a *App) StitchTimeline(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req struct {
		Style   string `json:"style,omitempty"`
		LogoKey string `json:"logoKey,omitempty"`
	}
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	ed, err := a.editor(r, projectID)
	if err != nil {
		a.fail(w, err)
		return
	}

	paths, err := a.Engine.ApplyClipEdits(r.Context(), ed.Clips(), projectID)
	if err != nil {
		a.fail(w, err)
		return
	}
	logoPath := ""
	if req.LogoKey != "" {
		if logoPath, err = a.Store.Files().Path(req.LogoKey); err != nil {
			a.fail(w, domain.NewValidation("invalid logo key").WithCause(err))
			return
		}
	}
	result, err := a.Engine.StitchVideos(r.Context(), paths, projectID, req.Style, logoPath)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, map[string]string{
		"localPath": result.LocalPath,
		"url":       result.URL,
		"key":       result.Key,
	})
}
