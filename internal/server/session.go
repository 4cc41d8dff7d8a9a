package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"activities/internal/journey"
	"activities/internal/observability"
	"activities/internal/repo"
)

const sessionCookie = "activities.session"

type sessionKey struct{}

// sessionFrom returns the journey session loaded by the sessions middleware.
func sessionFrom(r *http.Request) *journey.Session {
	sess, _ := r.Context().Value(sessionKey{}).(*journey.Session)
	return sess
}

// sessions loads the browser session before the handler runs and stores it again
// before the first byte of the response goes out.
func (s *server) sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.loadSession(r)
		if err != nil {
			observability.LoggerFromContext(r.Context()).Error("load session", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		sw := &sessionWriter{ResponseWriter: w}
		sw.commit = func() error { return s.saveSession(r.Context(), w, sess) }
		sw.logErr = func(err error) {
			observability.LoggerFromContext(r.Context()).Error("save session", "session_id", sess.ID, "error", err)
		}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
		sw.finish()
	})
}

func (s *server) loadSession(r *http.Request) (*journey.Session, error) {
	now := s.Now()
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, ok := s.parseSessionToken(c.Value, now); ok {
			row, err := s.Repo.GetSession(r.Context(), id, now)
			switch {
			case err == nil:
				sess, err := journey.Decode(id, row.Body)
				if err == nil {
					return sess, nil
				}
				observability.LoggerFromContext(r.Context()).Warn("discarding unreadable session", "session_id", id, "error", err)
			case !errors.Is(err, repo.ErrNotFound):
				return nil, err
			}
		}
	}
	return &journey.Session{ID: uuid.NewString(), User: s.User}, nil
}

func (s *server) saveSession(ctx context.Context, w http.ResponseWriter, sess *journey.Session) error {
	now := s.Now()
	body, err := sess.Encode()
	if err != nil {
		return err
	}
	if err := s.Repo.SaveSession(ctx, sess.ID, sess.User.Username, body, now, s.IdleTimeout); err != nil {
		return err
	}
	token, err := s.sessionToken(sess.ID, now)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(s.IdleTimeout),
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *server) sessionToken(id string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.IdleTimeout)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.SessionSecret))
}

func (s *server) parseSessionToken(raw string, now time.Time) (string, bool) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.SessionSecret), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// sessionWriter runs commit exactly once, ahead of the status line. A failed commit
// turns the response into a 500 and drops whatever the handler writes afterwards.
type sessionWriter struct {
	http.ResponseWriter
	commit    func() error
	logErr    func(error)
	committed bool
	failed    bool
}

func (w *sessionWriter) WriteHeader(code int) {
	if w.committed {
		if !w.failed {
			w.ResponseWriter.WriteHeader(code)
		}
		return
	}
	w.committed = true
	if err := w.commit(); err != nil {
		w.failed = true
		w.logErr(err)
		http.Error(w.ResponseWriter, "internal server error", http.StatusInternalServerError)
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// finish commits for handlers that wrote nothing at all.
func (w *sessionWriter) finish() {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
}
