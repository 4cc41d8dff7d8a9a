package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"activities/internal/journey"
	"activities/internal/observability"
)

// step is the GET and POST pair of one wizard page. path defaults to "/" + step name.
type step struct {
	path string
	get  http.HandlerFunc
	post http.HandlerFunc
}

// mountFlow registers every step of flow behind its state guard. A step of the flow
// without a handler is a programming error.
func (s *server) mountFlow(r chi.Router, flow *journey.Flow, fallback func(*http.Request) string, steps map[string]step) {
	for _, name := range flow.Steps() {
		h, ok := steps[name]
		if !ok {
			panic(fmt.Sprintf("%s: no handler for step %q", flow.Name, name))
		}
		path := h.path
		if path == "" {
			path = "/" + name
		}
		guarded := r.With(s.requireStep(flow, name, fallback))
		if h.get != nil {
			guarded.Get(path, h.get)
		}
		if h.post != nil {
			guarded.Post(path, h.post)
		}
	}
}

// requireStep redirects to fallback when the session lacks what step depends on.
func (s *server) requireStep(flow *journey.Flow, name string, fallback func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := flow.Check(sessionFrom(r), name)
			var missing *journey.MissingStateError
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.As(err, &missing):
				observability.LoggerFromContext(r.Context()).Info("journey state missing, redirecting",
					"journey", missing.Journey, "step", missing.Step, "field", missing.Field)
				redirect(w, r, fallback(r))
			default:
				s.fail(w, r, err)
			}
		})
	}
}

func toHome(*http.Request) string { return "/" }

// parseForms parses posted bodies once so step handlers can read r.PostForm.
func parseForms(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// carry keeps the check-answers return flag on an intermediate redirect.
func carry(r *http.Request, to string) string {
	if r.URL.Query().Get("preserveHistory") == "true" {
		return to + "?preserveHistory=true"
	}
	return to
}

func ptr[T any](v T) *T { return &v }
