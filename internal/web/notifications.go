package web

import (
	"log/slog"
	"net/http"
	"strings"
)

// MarkNotificationsRead handles POST /notifications/read, sent by the bell.
// It returns to the page given in the next field.
func (s *Server) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())

	if sess.Notifications().TotalNotifications > 0 {
		if err := sess.Poller().MarkAsRead(r.Context()); err != nil {
			if s.sessionEnded(w, r, err) {
				return
			}
			slog.Warn("failed to mark notifications as read", "session", sess.ID, "error", err)
		}
	}

	http.Redirect(w, r, localPath(r.FormValue("next")), http.StatusSeeOther)
}

// localPath returns next if it is a path on this site, else the dashboard.
func localPath(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	return next
}
