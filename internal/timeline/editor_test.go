package timeline

import (
	"math"
	"testing"

	"adforge/internal/domain"
)

func TestAddClipAssignsOrder(t *testing.T) {
	ed := NewEditor("proj")
	for i := 0; i < 3; i++ {
		if _, err := ed.AddClip("generated/proj/a.mp4", 10); err != nil {
			t.Fatalf("AddClip: %v", err)
		}
	}
	clips := ed.Clips()
	for i, c := range clips {
		if c.Order != i {
			t.Fatalf("clip %d has order %d", i, c.Order)
		}
	}
}

func TestTrimValidation(t *testing.T) {
	ed := NewEditor("proj")
	clip, err := ed.AddClip("generated/proj/a.mp4", 10)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}

	if err := ed.Trim(clip.ID, 2, 8); err != nil {
		t.Fatalf("valid trim rejected: %v", err)
	}
	if err := ed.Trim(clip.ID, 5, 5); err == nil {
		t.Fatal("zero-length trim accepted")
	}
	if err := ed.Trim(clip.ID, 0, 11); err == nil {
		t.Fatal("trim past source duration accepted")
	}
	if err := ed.Trim("missing", 0, 1); domain.CodeOf(err) != domain.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSplitConservesDuration(t *testing.T) {
	ed := NewEditor("proj")
	clip, err := ed.AddClip("generated/proj/a.mp4", 10)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if err := ed.Trim(clip.ID, 1, 9); err != nil {
		t.Fatalf("Trim: %v", err)
	}

	before := ed.Clips()[0].Duration()
	left, right, err := ed.Split(clip.ID, 3)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if got := left.Duration() + right.Duration(); math.Abs(got-before) > 1e-9 {
		t.Fatalf("split lost duration: %.9f vs %.9f", got, before)
	}
	if left.TrimEnd != right.TrimStart {
		t.Fatalf("split ranges do not abut: end %.3f start %.3f", left.TrimEnd, right.TrimStart)
	}

	clips := ed.Clips()
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(clips))
	}
	if clips[0].Order != 0 || clips[1].Order != 1 {
		t.Fatalf("orders not contiguous: %d, %d", clips[0].Order, clips[1].Order)
	}
	if clips[1].ID == clips[0].ID {
		t.Fatal("split halves share an id")
	}
}

func TestSplitOutsideClipRejected(t *testing.T) {
	ed := NewEditor("proj")
	clip, _ := ed.AddClip("generated/proj/a.mp4", 10)

	for _, at := range []float64{0, -1, 10, 12} {
		if _, _, err := ed.Split(clip.ID, at); domain.CodeOf(err) != domain.CodeValidation {
			t.Fatalf("split at %.1f: expected VALIDATION_ERROR, got %v", at, err)
		}
	}
}

func TestDeleteRenumbers(t *testing.T) {
	ed := NewEditor("proj")
	var ids []string
	for i := 0; i < 3; i++ {
		c, _ := ed.AddClip("generated/proj/a.mp4", 10)
		ids = append(ids, c.ID)
	}
	if err := ed.Delete(ids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	clips := ed.Clips()
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(clips))
	}
	if clips[0].ID != ids[0] || clips[1].ID != ids[2] {
		t.Fatal("wrong clip deleted")
	}
	if clips[0].Order != 0 || clips[1].Order != 1 {
		t.Fatalf("orders not contiguous after delete: %d, %d", clips[0].Order, clips[1].Order)
	}
}

func TestReorder(t *testing.T) {
	ed := NewEditor("proj")
	var ids []string
	for i := 0; i < 3; i++ {
		c, _ := ed.AddClip("generated/proj/a.mp4", 10)
		ids = append(ids, c.ID)
	}

	if err := ed.Reorder(ids[2], 0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	clips := ed.Clips()
	want := []string{ids[2], ids[0], ids[1]}
	for i, c := range clips {
		if c.ID != want[i] {
			t.Fatalf("position %d: got %s want %s", i, c.ID, want[i])
		}
		if c.Order != i {
			t.Fatalf("position %d has order %d", i, c.Order)
		}
	}

	if err := ed.Reorder(ids[0], 5); domain.CodeOf(err) != domain.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for out-of-range index, got %v", err)
	}
}

func TestUndoRedoSymmetry(t *testing.T) {
	ed := NewEditor("proj")

	c1, _ := ed.AddClip("generated/proj/a.mp4", 10)
	c2, _ := ed.AddClip("generated/proj/b.mp4", 6)
	if err := ed.Trim(c1.ID, 2, 8); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if _, _, err := ed.Split(c2.ID, 3); err != nil {
		t.Fatalf("Split: %v", err)
	}
	final := ed.Clips()

	// Walk all the way back and verify each prior state is restored.
	if !ed.Undo() { // undo split
		t.Fatal("undo split failed")
	}
	if got := len(ed.Clips()); got != 2 {
		t.Fatalf("after undoing split: %d clips", got)
	}
	if ed.Clips()[0].TrimStart != 2 {
		t.Fatal("trim lost by undoing split")
	}
	if !ed.Undo() { // undo trim
		t.Fatal("undo trim failed")
	}
	if ed.Clips()[0].TrimStart != 0 {
		t.Fatal("trim not undone")
	}
	if !ed.Undo() || !ed.Undo() { // undo both adds
		t.Fatal("undo adds failed")
	}
	if got := len(ed.Clips()); got != 0 {
		t.Fatalf("expected empty timeline, got %d clips", got)
	}
	if ed.Undo() {
		t.Fatal("undo on empty history reported success")
	}

	// Redo everything and land back at the final state.
	for i := 0; i < 4; i++ {
		if !ed.Redo() {
			t.Fatalf("redo %d failed", i)
		}
	}
	if ed.Redo() {
		t.Fatal("redo past history reported success")
	}
	redone := ed.Clips()
	if len(redone) != len(final) {
		t.Fatalf("redo restored %d clips, want %d", len(redone), len(final))
	}
	for i := range final {
		if redone[i] != final[i] {
			t.Fatalf("clip %d differs after redo: %+v vs %+v", i, redone[i], final[i])
		}
	}
}

func TestMutationClearsRedo(t *testing.T) {
	ed := NewEditor("proj")
	c, _ := ed.AddClip("generated/proj/a.mp4", 10)
	if err := ed.Trim(c.ID, 1, 9); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !ed.Undo() {
		t.Fatal("undo failed")
	}
	if err := ed.Trim(c.ID, 2, 8); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if ed.Redo() {
		t.Fatal("redo valid after a new mutation")
	}
}

func TestOverlayLifecycle(t *testing.T) {
	ed := NewEditor("proj")

	ov, err := ed.AddOverlay(domain.Overlay{
		Text: "50% off today", X: 0.5, Y: 0.8, StartTime: 1, EndTime: 4,
	})
	if err != nil {
		t.Fatalf("AddOverlay: %v", err)
	}
	if ov.ID == "" || ov.ProjectID != "proj" {
		t.Fatalf("overlay not stamped: %+v", ov)
	}

	if _, err := ed.AddOverlay(domain.Overlay{Text: "", X: 0, Y: 0, StartTime: 0, EndTime: 1}); err == nil {
		t.Fatal("empty text accepted")
	}

	if err := ed.RemoveOverlay(ov.ID); err != nil {
		t.Fatalf("RemoveOverlay: %v", err)
	}
	if got := len(ed.Overlays()); got != 0 {
		t.Fatalf("expected 0 overlays, got %d", got)
	}
	if err := ed.RemoveOverlay(ov.ID); domain.CodeOf(err) != domain.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestManagerReturnsSameEditor(t *testing.T) {
	m := NewManager()
	a := m.Editor("proj")
	if m.Editor("proj") != a {
		t.Fatal("manager handed out a second editor for the same project")
	}
	if m.Editor("other") == a {
		t.Fatal("editors shared across projects")
	}
	m.Drop("proj")
	if m.Editor("proj") == a {
		t.Fatal("dropped editor was reused")
	}
}
