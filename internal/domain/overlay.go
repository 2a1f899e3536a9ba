package domain

import "fmt"

// Overlay is a timed text layer drawn over the timeline. Coordinates are
// normalized to [0,1] against the render resolution; the overlay is visible
// during [StartTime, EndTime). Overlays are independent of clip boundaries.
type Overlay struct {
	ID          string
	ProjectID   string
	Text        string
	X           float64
	Y           float64
	StartTime   float64
	EndTime     float64
	FontSize    int
	Color       string
	BorderColor string
	BorderWidth int
	Background  string
	ZIndex      int
}

// Validate checks timing and coordinate invariants.
func (o *Overlay) Validate() error {
	if o.Text == "" {
		return NewValidation("overlay text is required")
	}
	if o.StartTime >= o.EndTime {
		return NewValidation(fmt.Sprintf("overlay %s: start %.3f must be before end %.3f", o.ID, o.StartTime, o.EndTime))
	}
	if o.X < 0 || o.X > 1 || o.Y < 0 || o.Y > 1 {
		return NewValidation(fmt.Sprintf("overlay %s: position (%.3f, %.3f) must be normalized to [0,1]", o.ID, o.X, o.Y))
	}
	return nil
}
