package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"adforge/internal/domain"
)

type createJobRequest struct {
	ProjectID string   `json:"projectId"`
	Kind      string   `json:"kind"`
	InputRefs []string `json:"inputRefs"`
}

type jobResponse struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"projectId"`
	ProviderJobID string     `json:"providerJobId,omitempty"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	InputRefs     []string   `json:"inputRefs,omitempty"`
	Attempt       int        `json:"attempt"`
	OutputURLs    []string   `json:"outputUrls,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		ID:            job.ID,
		ProjectID:     job.ProjectID,
		ProviderJobID: job.ProviderJobID,
		Kind:          string(job.Kind),
		Status:        string(job.Status),
		InputRefs:     job.InputRefs,
		Attempt:       job.Attempt,
		OutputURLs:    job.OutputURLs,
		ErrorMessage:  job.ErrorMessage,
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}
}

var validKinds = map[domain.JobKind]bool{
	domain.JobKindImage:             true,
	domain.JobKindVideo:             true,
	domain.JobKindMusic:             true,
	domain.JobKindNarration:         true,
	domain.JobKindBackgroundRemoval: true,
}

// CreateJob enqueues a generation job. The worker claims and drives it; the
// caller polls GetJob for completion.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.ProjectID == "" {
		a.fail(w, domain.NewValidation("projectId is required"))
		return
	}
	kind := domain.JobKind(req.Kind)
	if !validKinds[kind] {
		a.fail(w, domain.NewValidation("unknown job kind "+req.Kind))
		return
	}

	job := &domain.Job{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		Kind:      kind,
		Status:    domain.JobStatusStarting,
		InputRefs: req.InputRefs,
		CreatedAt: time.Now().UTC(),
	}
	if a.Jobs != nil {
		if err := a.Jobs.Create(r.Context(), job); err != nil {
			a.fail(w, domain.NewInternal("enqueue job").WithCause(err))
			return
		}
	}
	a.ok(w, http.StatusAccepted, toJobResponse(job))
}

// GetJob returns the current state of a job.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(jobID); err != nil {
		a.fail(w, domain.NewValidation("malformed job id"))
		return
	}
	if a.Jobs == nil {
		a.fail(w, domain.NewNotFound("no job with id "+jobID))
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, toJobResponse(job))
}
