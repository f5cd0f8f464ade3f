package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/toolshare/internal/auth"
	"github.com/erazemk/toolshare/internal/model"
)

type loginPage struct {
	PageData
	Form model.LoginForm
}

type signupPage struct {
	PageData
	Form model.SignupForm
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if s.currentSession(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, "login.html", &loginPage{PageData: PageData{Title: "Sign in"}})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	form := model.LoginForm{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}

	sess, err := s.Sessions.Login(r.Context(), form)
	if err == nil {
		s.endCookieSession(r)
		err = s.setSessionCookie(w, sess)
	}
	if err != nil {
		form.Password = ""
		s.Templates.RenderStatus(w, http.StatusOK, "login.html", &loginPage{
			PageData: PageData{Title: "Sign in", Error: userMessage(err, "Login failed. Please try again.")},
			Form:     form,
		})
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// SignupPage handles GET /signup.
func (s *Server) SignupPage(w http.ResponseWriter, r *http.Request) {
	if s.currentSession(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, "signup.html", &signupPage{PageData: PageData{Title: "Create account"}})
}

// SignupSubmit handles POST /signup.
func (s *Server) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	form := model.SignupForm{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		Phone:           r.FormValue("phone"),
		BlockNo:         r.FormValue("block_no"),
		HouseNo:         r.FormValue("house_no"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	sess, err := s.Sessions.Signup(r.Context(), form)
	if err == nil {
		s.endCookieSession(r)
		err = s.setSessionCookie(w, sess)
	}
	if err != nil {
		form.Password, form.ConfirmPassword = "", ""
		s.Templates.Render(w, "signup.html", &signupPage{
			PageData: PageData{Title: "Create account", Error: userMessage(err, "Signup failed. Please try again.")},
			Form:     form,
		})
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// LogoutPage handles GET /logout, which asks for confirmation.
func (s *Server) LogoutPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "logout.html", &struct{ PageData }{s.page(r, "Confirm Logout")})
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	s.endCookieSession(r)
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// endCookieSession logs out the session named by the request's cookie, if
// any. A browser holds one session at a time.
func (s *Server) endCookieSession(r *http.Request) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	claims, err := auth.ValidateToken(s.JWTSecret, cookie.Value)
	if err != nil {
		return
	}
	if err := s.Sessions.Logout(r.Context(), claims.SessionID); err != nil {
		slog.Error("failed to end session", "session", claims.SessionID, "error", err)
	}
}
