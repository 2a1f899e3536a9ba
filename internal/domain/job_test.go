package domain

import "testing"

func TestJobTransitionMonotonic(t *testing.T) {
	job := &Job{ID: "j1", Status: JobStatusStarting}
	if err := job.Transition(JobStatusProcessing); err != nil {
		t.Fatalf("transition to processing: %v", err)
	}
	if err := job.Transition(JobStatusSucceeded); err != nil {
		t.Fatalf("transition to succeeded: %v", err)
	}
	if job.CompletedAt == nil {
		t.Fatalf("expected completion timestamp on terminal transition")
	}
	if err := job.Transition(JobStatusFailed); err == nil {
		t.Fatalf("expected error leaving terminal state")
	}
	if job.Status != JobStatusSucceeded {
		t.Fatalf("terminal state mutated: %s", job.Status)
	}
	// Re-observing the same terminal state is a no-op, not an error.
	if err := job.Transition(JobStatusSucceeded); err != nil {
		t.Fatalf("idempotent terminal observation: %v", err)
	}
}

func TestJobTransitionIgnoresStaleStatus(t *testing.T) {
	// A worker claims the row as processing before the provider's first
	// status read, which can still report starting.
	job := &Job{ID: "j1", Status: JobStatusProcessing}
	if err := job.Transition(JobStatusStarting); err != nil {
		t.Fatalf("stale status should be ignored, not rejected: %v", err)
	}
	if job.Status != JobStatusProcessing {
		t.Fatalf("job moved backwards to %s", job.Status)
	}
	if err := job.Transition(JobStatusSucceeded); err != nil {
		t.Fatalf("forward transition after stale read: %v", err)
	}
	if job.Status != JobStatusSucceeded {
		t.Fatalf("unexpected status %s", job.Status)
	}
}

func TestClipValidate(t *testing.T) {
	cases := []struct {
		name    string
		clip    Clip
		wantErr bool
	}{
		{"valid", Clip{ID: "c", TrimStart: 0, TrimEnd: 5, SourceDuration: 10}, false},
		{"inverted", Clip{ID: "c", TrimStart: 5, TrimEnd: 5}, true},
		{"negative start", Clip{ID: "c", TrimStart: -1, TrimEnd: 2}, true},
		{"beyond source", Clip{ID: "c", TrimStart: 0, TrimEnd: 11, SourceDuration: 10}, true},
	}
	for _, tc := range cases {
		err := tc.clip.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestOverlayValidate(t *testing.T) {
	good := Overlay{ID: "o", Text: "Sale", X: 0.5, Y: 0.9, StartTime: 1, EndTime: 3}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := Overlay{ID: "o", Text: "Sale", X: 1.2, Y: 0.5, StartTime: 1, EndTime: 3}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range position")
	}
	swapped := Overlay{ID: "o", Text: "Sale", X: 0.5, Y: 0.5, StartTime: 3, EndTime: 1}
	if err := swapped.Validate(); err == nil {
		t.Fatalf("expected error for inverted window")
	}
}
