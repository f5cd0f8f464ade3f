package web

import (
	"net/http"

	"github.com/erazemk/toolshare/internal/session"
	webembed "github.com/erazemk/toolshare/web"
)

// Options configures the web front-end.
type Options struct {
	JWTSecret     string
	SecureCookies bool
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(sessions *session.Manager, opts Options) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Sessions:      sessions,
		Templates:     templates,
		JWTSecret:     opts.JWTSecret,
		SecureCookies: opts.SecureCookies,
	}

	mux := http.NewServeMux()
	guard := s.SessionMiddleware

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /signup", s.SignupPage)
	mux.HandleFunc("POST /signup", s.SignupSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", guard(http.RedirectHandler("/dashboard", http.StatusSeeOther)))
	mux.Handle("GET /logout", guard(http.HandlerFunc(s.LogoutPage)))
	mux.Handle("GET /dashboard", guard(http.HandlerFunc(s.Dashboard)))

	mux.Handle("GET /add-tool", guard(http.HandlerFunc(s.AddToolPage)))
	mux.Handle("POST /add-tool", guard(http.HandlerFunc(s.AddToolSubmit)))
	mux.Handle("GET /my-tools", guard(http.HandlerFunc(s.MyToolsPage)))
	mux.Handle("POST /my-tools/{id}", guard(http.HandlerFunc(s.UpdateToolSubmit)))
	mux.Handle("POST /my-tools/{id}/delete", guard(http.HandlerFunc(s.DeleteToolSubmit)))

	mux.Handle("GET /borrow-tool/{id}", guard(http.HandlerFunc(s.BorrowPage)))
	mux.Handle("POST /borrow-tool/{id}", guard(http.HandlerFunc(s.BorrowSubmit)))
	mux.Handle("GET /my-requests", guard(http.HandlerFunc(s.MyRequestsPage)))
	mux.Handle("GET /incoming-requests", guard(http.HandlerFunc(s.IncomingRequestsPage)))
	mux.Handle("POST /incoming-requests/{id}/{action}", guard(http.HandlerFunc(s.IncomingActionSubmit)))
	mux.Handle("GET /my-borrowed-tools", guard(http.HandlerFunc(s.BorrowedToolsPage)))
	mux.Handle("GET /lent-tools", guard(http.HandlerFunc(s.LentToolsPage)))

	mux.Handle("POST /notifications/read", guard(http.HandlerFunc(s.MarkNotificationsRead)))

	return mux, nil
}
