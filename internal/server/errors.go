package server

import (
	"errors"
	"net/http"

	"activities/internal/api"
	"activities/internal/journey"
	"activities/internal/observability"
)

// fail is the single place a handler error becomes a page. It is logged once here.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	log := observability.LoggerFromContext(r.Context())
	var missing *journey.MissingStateError
	switch {
	case errors.As(err, &missing):
		log.Warn("journey state missing", "journey", missing.Journey, "step", missing.Step, "field", missing.Field)
		redirect(w, r, "/")
	case api.IsNotFound(err):
		log.Warn("upstream resource not found", "path", r.URL.Path, "error", err)
		s.notFound(w, r)
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.render(w, r, http.StatusInternalServerError, Page{
			Title:      "Sorry, there is a problem with the service",
			Paragraphs: []string{"Try again later."},
		})
	}
}

func (s *server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	observability.LoggerFromContext(r.Context()).Warn("bad request", "path", r.URL.Path, "reason", msg)
	s.render(w, r, http.StatusBadRequest, Page{Title: "Sorry, there is a problem", Paragraphs: []string{msg}})
}
