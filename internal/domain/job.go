package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindImage             JobKind = "image"
	JobKindVideo             JobKind = "video"
	JobKindMusic             JobKind = "music"
	JobKindNarration         JobKind = "narration"
	JobKindBackgroundRemoval JobKind = "background-removal"
)

// JobStatus enumerates the provider-visible job lifecycle states. The values
// mirror the external generation service verbatim.
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// rank orders the lifecycle for monotonicity checks: starting precedes
// processing precedes any terminal state.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusStarting:
		return 0
	case JobStatusProcessing:
		return 1
	}
	return 2
}

// Job encapsulates one outstanding or completed call to the external
// synthesis provider.
type Job struct {
	ID            string
	ProjectID     string
	ProviderJobID string
	Kind          JobKind
	Status        JobStatus
	InputRefs     []string
	Attempt       int
	OutputURLs    []string
	ErrorMessage  string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Transition moves the job forward along starting, processing, terminal.
// A move backwards is ignored: the worker marks a claimed row processing
// before the provider's first status read, which may still say starting.
// Once terminal no further transition is accepted.
func (j *Job) Transition(next JobStatus) error {
	if j.Status.Terminal() {
		if j.Status == next {
			return nil
		}
		return NewInternal("job " + j.ID + " already terminal in state " + string(j.Status))
	}
	if next.rank() < j.Status.rank() {
		return nil
	}
	j.Status = next
	if next.Terminal() {
		now := time.Now().UTC()
		j.CompletedAt = &now
	}
	return nil
}
