package domain

import "fmt"

// Clip is one trimmed segment placed on the edit timeline. Order is the
// ordinal position; only the relative order matters but values must be
// unique within a timeline.
type Clip struct {
	ID             string
	ProjectID      string
	ArtifactKey    string
	TrimStart      float64
	TrimEnd        float64
	SourceDuration float64
	Order          int
	EditedKey      string
}

// Duration returns the playable length of the clip in seconds.
func (c *Clip) Duration() float64 {
	return c.TrimEnd - c.TrimStart
}

// Validate checks the trim invariant: 0 <= trimStart < trimEnd <= sourceDuration.
func (c *Clip) Validate() error {
	if c.TrimStart < 0 {
		return NewValidation(fmt.Sprintf("clip %s: trim start %.3f is negative", c.ID, c.TrimStart))
	}
	if c.TrimStart >= c.TrimEnd {
		return NewValidation(fmt.Sprintf("clip %s: trim start %.3f must be before trim end %.3f", c.ID, c.TrimStart, c.TrimEnd))
	}
	if c.SourceDuration > 0 && c.TrimEnd > c.SourceDuration {
		return NewValidation(fmt.Sprintf("clip %s: trim end %.3f exceeds source duration %.3f", c.ID, c.TrimEnd, c.SourceDuration))
	}
	return nil
}
