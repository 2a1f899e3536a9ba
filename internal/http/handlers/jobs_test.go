package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func getJob(app *App, id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	app.GetJob(rec, req)
	return rec
}

func TestGetJobMalformedID(t *testing.T) {
	app := &App{Logger: zerolog.Nop()}
	if rec := getJob(app, "not-a-uuid"); rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestGetJobWithoutStore(t *testing.T) {
	app := &App{Logger: zerolog.Nop()}

	rec := getJob(app, uuid.NewString())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Success || env.Code != "NOT_FOUND" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}
