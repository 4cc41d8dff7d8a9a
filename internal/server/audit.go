package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"activities/internal/events"
	"activities/internal/observability"
)

// audit records a completed change. A failure is logged and does not undo the change,
// which the API has already made.
func (s *server) audit(r *http.Request, e events.Entry) {
	e.PrisonCode = s.prison(r)
	if sess := sessionFrom(r); sess != nil {
		e.ActorID = sess.User.Username
	}
	e.RequestID = middleware.GetReqID(r.Context())
	if err := s.Events.Append(r.Context(), nil, e); err != nil {
		observability.LoggerFromContext(r.Context()).Error("audit event not recorded", "type", e.Type, "error", err)
	}
}
