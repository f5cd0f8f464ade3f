package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/model"
	"github.com/erazemk/toolshare/internal/session"
)

// Server holds all dependencies for page handlers.
type Server struct {
	Sessions      *session.Manager
	Templates     *Templates
	JWTSecret     string
	SecureCookies bool
}

// NavItem is one sidebar entry.
type NavItem struct {
	Path   string
	Label  string
	Badge  int
	Active bool
}

// Href links to the entry, asking for notifications to be cleared when it
// carries a badge.
func (n NavItem) Href() string {
	if n.Badge > 0 {
		return n.Path + "?seen=1"
	}
	return n.Path
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title         string
	User          *model.User
	Path          string
	Nav           []NavItem
	Notifications model.NotificationData
	Error         string
	Success       string
	// Refresh, when set, makes the page navigate to RefreshURL after
	// RefreshSeconds.
	RefreshURL     string
	RefreshSeconds float64
}

// page builds the base data for an authenticated page.
func (s *Server) page(r *http.Request, title string) PageData {
	sess := SessionFrom(r.Context())
	if sess == nil {
		return PageData{Title: title, Path: r.URL.Path}
	}

	user := sess.User()
	counts := sess.Notifications()
	nav := []NavItem{
		{Path: "/dashboard", Label: "Dashboard"},
		{Path: "/add-tool", Label: "Add Tool"},
		{Path: "/my-tools", Label: "My Tools"},
		{Path: "/my-requests", Label: "My Requests", Badge: counts.NewApprovals},
		{Path: "/incoming-requests", Label: "Incoming Requests", Badge: counts.NewRequests},
		{Path: "/my-borrowed-tools", Label: "My Borrowed Tools"},
		{Path: "/lent-tools", Label: "Lent Tools"},
	}
	for i := range nav {
		nav[i].Active = nav[i].Path == r.URL.Path
	}

	return PageData{
		Title:         title,
		User:          &user,
		Path:          r.URL.Path,
		Nav:           nav,
		Notifications: counts,
	}
}

// client returns the backend client for the request's session.
func (s *Server) client(r *http.Request) *client.Client {
	return s.Sessions.Client(SessionFrom(r.Context()))
}

// sessionEnded finishes the response when err means the backend rejected the
// session's token. The client hook has already torn the session down.
func (s *Server) sessionEnded(w http.ResponseWriter, r *http.Request, err error) bool {
	if !client.IsUnauthorized(err) {
		return false
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

// refreshNotifications re-reads the session's counters. Failures only log.
func (s *Server) refreshNotifications(ctx context.Context, sess *session.Session) error {
	err := sess.Poller().Refresh(ctx)
	if err != nil && !client.IsUnauthorized(err) {
		slog.Warn("failed to refresh notifications", "session", sess.ID, "error", err)
		return nil
	}
	return err
}

// userMessage picks the text shown in an error banner. Validation and
// backend messages are shown as is; anything else is logged and replaced by
// fallback.
func userMessage(err error, fallback string) string {
	var verr *model.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		slog.Error("request failed", "error", err)
		return fallback
	}
}

// withCounts refreshes the sidebar badges of pd after the counters changed.
func (s *Server) withCounts(r *http.Request, pd PageData) PageData {
	fresh := s.page(r, pd.Title)
	pd.Nav = fresh.Nav
	pd.Notifications = fresh.Notifications
	return pd
}
