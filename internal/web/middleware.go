package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/toolshare/internal/auth"
	"github.com/erazemk/toolshare/internal/session"
)

type webContextKey string

const webSessionKey webContextKey = "session"

// cookieName is the browser cookie carrying the signed session reference.
const cookieName = "session"

// SessionMiddleware is the route guard. It resolves the session named by the
// cookie, restoring it from storage if needed, and redirects to /login when
// there is none. A GET with ?seen=1 clears the session's notifications
// before the page is served.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.currentSession(r)
		if sess == nil {
			s.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), webSessionKey, sess)
		r = r.WithContext(ctx)

		if r.Method == http.MethodGet && r.URL.Query().Get("seen") == "1" && sess.Notifications().TotalNotifications > 0 {
			if err := sess.Poller().MarkAsRead(ctx); err != nil {
				if s.sessionEnded(w, r, err) {
					return
				}
				slog.Warn("failed to mark notifications as read", "session", sess.ID, "error", err)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// currentSession returns the live session named by the request's cookie, or
// nil.
func (s *Server) currentSession(r *http.Request) *session.Session {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := auth.ValidateToken(s.JWTSecret, cookie.Value)
	if err != nil {
		return nil
	}

	sess, err := s.Sessions.Get(r.Context(), claims.SessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			slog.Error("failed to load session", "error", err)
		}
		return nil
	}
	return sess
}

// setSessionCookie issues the cookie for a new session.
func (s *Server) setSessionCookie(w http.ResponseWriter, sess *session.Session) error {
	token, err := auth.GenerateToken(s.JWTSecret, sess.ID, sess.User().Username)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.TokenExpiry / time.Second),
	})
	return nil
}

// clearSessionCookie clears the session cookie with consistent attributes.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// SessionFrom retrieves the session stored by SessionMiddleware.
func SessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(webSessionKey).(*session.Session)
	return sess
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

