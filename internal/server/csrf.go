package server

import (
	"net/http"

	"github.com/gorilla/csrf"

	"activities/internal/observability"
)

const csrfField = "_csrf"

// csrfProtect rejects form posts without a valid token. Without secure cookies the
// site is served over plain HTTP, so the TLS-only referer check is switched off.
func (s *server) csrfProtect() func(http.Handler) http.Handler {
	protect := csrf.Protect([]byte(s.CSRFKey),
		csrf.Secure(s.SecureCookies),
		csrf.Path("/"),
		csrf.FieldName(csrfField),
		csrf.CookieName("activities.csrf"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if s.SecureCookies {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func (s *server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	observability.LoggerFromContext(r.Context()).Warn("csrf check failed",
		"path", r.URL.Path,
		"reason", csrf.FailureReason(r),
	)
	s.render(w, r, http.StatusForbidden, Page{
		Title:      "Your form could not be submitted",
		Paragraphs: []string{"The page may have been open for too long. Go back, reload the page and try again."},
	})
}
