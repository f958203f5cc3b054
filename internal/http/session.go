package http

import (
	"net/http"
	"net/url"

	"kaskelas/internal/log"
	"kaskelas/internal/session"
)

// adminHandler receives the logged-in admin identity.
type adminHandler func(w http.ResponseWriter, r *http.Request, admin string)

// currentSession returns the live session behind the request cookie.
func (s *Server) currentSession(r *http.Request) (string, *session.Session) {
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return "", nil
	}
	sess, ok := s.sessions.Get(c.Value)
	if !ok {
		return "", nil
	}
	return c.Value, sess
}

// ensureSession returns the request's session, starting one when needed.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) *session.Session {
	if _, sess := s.currentSession(r); sess != nil {
		return sess
	}
	token, sess := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.detector.Scheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *Server) isAdmin(r *http.Request) (string, bool) {
	_, sess := s.currentSession(r)
	if sess == nil || !sess.IsAdmin() {
		return "", false
	}
	return sess.User(), true
}

// requireAdmin rejects anonymous and cross-site requests before next runs.
func (s *Server) requireAdmin(next adminHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := s.isAdmin(r)
		if !ok {
			UnauthorizedError("Silakan masuk sebagai admin terlebih dahulu.").Write(w)
			return
		}
		if r.Method != http.MethodGet && !sameOrigin(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Cross-site admin request refused",
				log.FieldUser, admin,
				"origin", r.Header.Get("Origin"))
			ErrorResponse(http.StatusForbidden, "Permintaan ditolak.").Write(w)
			return
		}
		next(w, r, admin)
	}
}

// sameOrigin accepts requests without an Origin header and those whose
// Origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
