// Package timeline holds the mutable edit state for one project: ordered
// trimmed clips plus timed text overlays, with snapshot-based undo/redo.
package timeline

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"adforge/internal/domain"
)

// snapshot is one full copy of the timeline state. Mutations push the prior
// snapshot onto the undo stack and clear the redo stack, so redo is only
// valid immediately after undo.
type snapshot struct {
	clips    []domain.Clip
	overlays []domain.Overlay
}

// Editor serializes all mutations for a single project's timeline. Within
// one timeline, operations apply in request order; across projects no
// ordering is provided.
type Editor struct {
	mu        sync.Mutex
	projectID string
	clips     []domain.Clip
	overlays  []domain.Overlay
	undoStack []snapshot
	redoStack []snapshot
}

// NewEditor creates an empty editor for projectID.
func NewEditor(projectID string) *Editor {
	return &Editor{projectID: projectID}
}

// Load replaces the editor state with persisted records, resetting history.
func (e *Editor) Load(clips []domain.Clip, overlays []domain.Overlay) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clips = cloneClips(clips)
	e.overlays = cloneOverlays(overlays)
	renumber(e.clips)
	e.undoStack = nil
	e.redoStack = nil
}

// Clips returns a copy of the current clips in timeline order.
func (e *Editor) Clips() []domain.Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneClips(e.clips)
}

// Overlays returns a copy of the current overlays.
func (e *Editor) Overlays() []domain.Overlay {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneOverlays(e.overlays)
}

// AddClip appends a clip to the end of the timeline.
func (e *Editor) AddClip(artifactKey string, sourceDuration float64) (domain.Clip, error) {
	clip := domain.Clip{
		ID:             uuid.NewString(),
		ProjectID:      e.projectID,
		ArtifactKey:    artifactKey,
		TrimStart:      0,
		TrimEnd:        sourceDuration,
		SourceDuration: sourceDuration,
	}
	if err := clip.Validate(); err != nil {
		return domain.Clip{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkpoint()
	clip.Order = len(e.clips)
	e.clips = append(e.clips, clip)
	return clip, nil
}

// Trim adjusts a clip's trim bounds.
func (e *Editor) Trim(clipID string, start, end float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(clipID)
	if idx < 0 {
		return domain.NewNotFound(fmt.Sprintf("clip %s not on timeline", clipID))
	}
	candidate := e.clips[idx]
	candidate.TrimStart = start
	candidate.TrimEnd = end
	candidate.EditedKey = ""
	if err := candidate.Validate(); err != nil {
		return err
	}

	e.checkpoint()
	e.clips[idx] = candidate
	return nil
}

// Split cuts a clip at a timeline-relative offset into the clip, producing
// two clips whose trim ranges abut exactly: the combined duration equals the
// original's, with no gap and no overlap.
func (e *Editor) Split(clipID string, at float64) (domain.Clip, domain.Clip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(clipID)
	if idx < 0 {
		return domain.Clip{}, domain.Clip{}, domain.NewNotFound(fmt.Sprintf("clip %s not on timeline", clipID))
	}
	original := e.clips[idx]
	cut := original.TrimStart + at
	if at <= 0 || cut >= original.TrimEnd {
		return domain.Clip{}, domain.Clip{}, domain.NewValidation(
			fmt.Sprintf("split point %.3f outside clip %s (duration %.3f)", at, clipID, original.Duration()))
	}

	e.checkpoint()

	left := original
	left.TrimEnd = cut
	left.EditedKey = ""

	right := original
	right.ID = uuid.NewString()
	right.TrimStart = cut
	right.EditedKey = ""

	e.clips[idx] = left
	e.clips = append(e.clips[:idx+1], append([]domain.Clip{right}, e.clips[idx+1:]...)...)
	renumber(e.clips)
	return left, right, nil
}

// Delete removes a clip from the timeline.
func (e *Editor) Delete(clipID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(clipID)
	if idx < 0 {
		return domain.NewNotFound(fmt.Sprintf("clip %s not on timeline", clipID))
	}
	e.checkpoint()
	e.clips = append(e.clips[:idx], e.clips[idx+1:]...)
	renumber(e.clips)
	return nil
}

// Reorder moves a clip to a new ordinal position.
func (e *Editor) Reorder(clipID string, newIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(clipID)
	if idx < 0 {
		return domain.NewNotFound(fmt.Sprintf("clip %s not on timeline", clipID))
	}
	if newIndex < 0 || newIndex >= len(e.clips) {
		return domain.NewValidation(fmt.Sprintf("reorder index %d out of range [0,%d)", newIndex, len(e.clips)))
	}
	if newIndex == idx {
		return nil
	}

	e.checkpoint()
	moved := e.clips[idx]
	rest := append(e.clips[:idx:idx], e.clips[idx+1:]...)
	e.clips = append(rest[:newIndex:newIndex], append([]domain.Clip{moved}, rest[newIndex:]...)...)
	renumber(e.clips)
	return nil
}

// AddOverlay places a text overlay on the timeline.
func (e *Editor) AddOverlay(overlay domain.Overlay) (domain.Overlay, error) {
	if overlay.ID == "" {
		overlay.ID = uuid.NewString()
	}
	overlay.ProjectID = e.projectID
	if err := overlay.Validate(); err != nil {
		return domain.Overlay{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkpoint()
	e.overlays = append(e.overlays, overlay)
	return overlay, nil
}

// RemoveOverlay deletes an overlay by id.
func (e *Editor) RemoveOverlay(overlayID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, o := range e.overlays {
		if o.ID == overlayID {
			e.checkpoint()
			e.overlays = append(e.overlays[:i], e.overlays[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFound(fmt.Sprintf("overlay %s not on timeline", overlayID))
}

// Undo restores the timeline to the state before the most recent mutation.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.undoStack) == 0 {
		return false
	}
	current := snapshot{clips: e.clips, overlays: e.overlays}
	e.redoStack = append(e.redoStack, current)

	last := e.undoStack[len(e.undoStack)-1]
	e.undoStack = e.undoStack[:len(e.undoStack)-1]
	e.clips = last.clips
	e.overlays = last.overlays
	return true
}

// Redo re-applies the most recently undone mutation.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.redoStack) == 0 {
		return false
	}
	current := snapshot{clips: e.clips, overlays: e.overlays}
	e.undoStack = append(e.undoStack, current)

	last := e.redoStack[len(e.redoStack)-1]
	e.redoStack = e.redoStack[:len(e.redoStack)-1]
	e.clips = last.clips
	e.overlays = last.overlays
	return true
}

// checkpoint pushes the current state onto the undo stack and clears the
// redo stack. Caller must hold the lock.
func (e *Editor) checkpoint() {
	e.undoStack = append(e.undoStack, snapshot{
		clips:    cloneClips(e.clips),
		overlays: cloneOverlays(e.overlays),
	})
	e.redoStack = nil
}

func (e *Editor) indexOf(clipID string) int {
	for i, c := range e.clips {
		if c.ID == clipID {
			return i
		}
	}
	return -1
}

// renumber reassigns contiguous order values after a structural change, so
// duplicate orders can never reach the render layer.
func renumber(clips []domain.Clip) {
	for i := range clips {
		clips[i].Order = i
	}
}

func cloneClips(clips []domain.Clip) []domain.Clip {
	return append([]domain.Clip(nil), clips...)
}

func cloneOverlays(overlays []domain.Overlay) []domain.Overlay {
	return append([]domain.Overlay(nil), overlays...)
}
