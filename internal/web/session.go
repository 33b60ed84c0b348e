package web

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"watchingcat/internal/dashboard"
)

const sessionCookieName = "watchingcat_session"

// sessionHandler is a handler bound to the caller's dashboard session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *dashboard.Session)

// withSession resolves the session cookie, issuing a fresh id when the
// cookie is missing or malformed.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		if id == "" {
			id = uuid.NewString()
			slog.Debug("New browser session", "session", id, "remote", r.RemoteAddr, "component", "Web")
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(s.ttl.Seconds()),
		})
		next(w, r, s.ctrl.Session(id))
	}
}

// withKnownSession binds next to an existing session. Read-only endpoints use
// it so a stray GET never creates a session; unknown callers get 404.
func (s *Server) withKnownSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.ctrl.LookupSession(sessionID(r))
		if !ok {
			http.NotFound(w, r)
			return
		}
		next(w, r, sess)
	}
}

// sessionID returns the normalized id from the session cookie, or "".
func sessionID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	parsed, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return parsed.String()
}
