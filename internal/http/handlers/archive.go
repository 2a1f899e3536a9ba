package handlers

import (
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"adforge/internal/domain"
	"adforge/pkg/zip"
)

// ArchiveProject bundles a project's stored artifacts into one zip
// download. Unreadable files are skipped rather than failing the bundle.
func (a *App) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if a.Artifacts == nil {
		a.fail(w, domain.NewNotFound("project "+projectID+" has no artifacts"))
		return
	}
	artifacts, err := a.Artifacts.ListByProject(r.Context(), projectID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if len(artifacts) == 0 {
		a.fail(w, domain.NewNotFound("project "+projectID+" has no artifacts"))
		return
	}

	entries := make([]zip.Entry, 0, len(artifacts))
	for _, artifact := range artifacts {
		data, err := a.Store.Files().Read(r.Context(), artifact.Key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("key", artifact.Key).Msg("skipping unreadable artifact")
			continue
		}
		entries = append(entries, zip.Entry{Name: path.Base(artifact.Key), Data: data})
	}
	if len(entries) == 0 {
		a.fail(w, domain.NewNotFound("project "+projectID+" has no readable artifacts"))
		return
	}

	archive, err := zip.Archive(entries)
	if err != nil {
		a.fail(w, domain.NewInternal("build archive").WithCause(err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", projectID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
