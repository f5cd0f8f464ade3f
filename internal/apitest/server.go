// Package apitest runs an in-memory stand-in for the tool-sharing backend so
// the client, session and web layers can be tested end to end.
package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/toolshare/internal/model"
)

// DefaultPageSize matches the backend's paginator.
const DefaultPageSize = 10

type account struct {
	user     model.User
	password string
}

// Server is a fake backend. Its API is rooted at URL + "/api".
type Server struct {
	*httptest.Server

	// PageSize is the number of results per page on paginated endpoints.
	PageSize int
	// Today returns the current date used for return dates and overdue flags.
	Today func() time.Time

	mu       sync.Mutex
	nextID   int64
	accounts []*account
	tokens   map[string]int64
	tools    []*model.Tool
	requests []*model.BorrowRequest
	hits     map[string]int
}

// NewServer starts a fake backend that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		PageSize: DefaultPageSize,
		Today:    time.Now,
		tokens:   make(map[string]int64),
		hits:     make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the base URL clients should be configured with.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// AddUser registers an account directly, bypassing signup.
func (s *Server) AddUser(username, email, password string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, email, password, "", "", "")
}

func (s *Server) addUserLocked(username, email, password, phone, block, house string) model.User {
	s.nextID++
	u := model.User{
		ID:         s.nextID,
		Username:   username,
		Email:      email,
		Phone:      phone,
		BlockNo:    block,
		HouseNo:    house,
		DateJoined: time.Now().UTC(),
	}
	s.accounts = append(s.accounts, &account{user: u, password: password})
	return u
}

// AddTool lists a tool for an existing user.
func (s *Server) AddTool(ownerID int64, name, category, condition string) model.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := s.userLocked(ownerID)
	s.nextID++
	now := time.Now().UTC()
	tool := &model.Tool{
		ID:          s.nextID,
		Name:        name,
		Category:    category,
		Condition:   condition,
		IsAvailable: true,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tools = append(s.tools, tool)
	return *tool
}

// TokenFor issues a token for a user, as a successful login would.
func (s *Server) TokenFor(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(userID)
}

// RevokeAll invalidates every issued token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tokens)
}

// Request returns a copy of a borrow request by ID.
func (s *Server) Request(id int64) (model.BorrowRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id {
			return s.viewLocked(r), true
		}
	}
	return model.BorrowRequest{}, false
}

// Tool returns a copy of a tool by ID.
func (s *Server) Tool(id int64) (model.Tool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.toolLocked(id); t != nil {
		return *t, true
	}
	return model.Tool{}, false
}

// Hits returns how many times an endpoint was called, keyed like
// "POST /api/requests/".
func (s *Server) Hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup/", s.signup)
	mux.HandleFunc("POST /api/auth/login/", s.login)
	mux.HandleFunc("POST /api/auth/logout/", s.authed(s.logout))
	mux.HandleFunc("GET /api/auth/user/", s.authed(s.currentUser))

	mux.HandleFunc("GET /api/tools/{$}", s.authed(s.listTools))
	mux.HandleFunc("POST /api/tools/{$}", s.authed(s.createTool))
	mux.HandleFunc("GET /api/tools/my-tools/", s.authed(s.myTools))
	mux.HandleFunc("GET /api/tools/stats/", s.authed(s.toolStats))
	mux.HandleFunc("PUT /api/tools/{id}/", s.authed(s.updateTool))
	mux.HandleFunc("DELETE /api/tools/{id}/", s.authed(s.deleteTool))

	mux.HandleFunc("GET /api/requests/{$}", s.authed(s.myRequests))
	mux.HandleFunc("POST /api/requests/{$}", s.authed(s.createRequest))
	mux.HandleFunc("GET /api/requests/incoming/", s.authed(s.incoming))
	mux.HandleFunc("POST /api/requests/{id}/approve/", s.authed(s.approve))
	mux.HandleFunc("POST /api/requests/{id}/reject/", s.authed(s.reject))
	mux.HandleFunc("POST /api/requests/{id}/returned/", s.authed(s.returned))
	mux.HandleFunc("GET /api/requests/stats/", s.authed(s.requestStats))
	mux.HandleFunc("GET /api/requests/notifications/", s.authed(s.notifications))
	mux.HandleFunc("POST /api/requests/notifications/read/", s.authed(s.markRead))
	mux.HandleFunc("GET /api/requests/borrowed/", s.authed(s.borrowed))
	mux.HandleFunc("GET /api/requests/lent/", s.authed(s.lent))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user model.User)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Token ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}

		s.mu.Lock()
		userID, ok := s.tokens[strings.TrimPrefix(header, "Token ")]
		var user model.User
		if ok {
			user = s.userLocked(userID)
		}
		s.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		h(w, r, user)
	}
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var form model.SignupForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid payload"}})
		return
	}

	errs := fieldErrors{}
	errs.require("username", form.Username)
	errs.require("email", form.Email)
	errs.require("phone", form.Phone)
	errs.require("block_no", form.BlockNo)
	errs.require("house_no", form.HouseNo)
	errs.require("password", form.Password)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, form.Email) {
			errs.add("email", "user with this email already exists.")
		}
	}
	if form.Password != form.ConfirmPassword {
		errs.add("non_field_errors", "Passwords don't match")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	u := s.addUserLocked(form.Username, form.Email, form.Password, form.Phone, form.BlockNo, form.HouseNo)
	writeJSON(w, http.StatusCreated, model.AuthResponse{
		User:    u,
		Token:   s.issueTokenLocked(u.ID),
		Message: "User created successfully",
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var form model.LoginForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid payload"}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, form.Email) && a.password == form.Password {
			writeJSON(w, http.StatusOK, model.AuthResponse{
				User:    a.user,
				Token:   s.issueTokenLocked(a.user.ID),
				Message: "Login successful",
			})
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid credentials"}})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, _ model.User) {
	s.mu.Lock()
	delete(s.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Token "))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (s *Server) currentUser(w http.ResponseWriter, _ *http.Request, user model.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request, user model.User) {
	s.mu.Lock()
	var tools []model.Tool
	for i := len(s.tools) - 1; i >= 0; i-- {
		t := s.tools[i]
		if t.IsAvailable && t.Owner.ID != user.ID {
			tools = append(tools, *t)
		}
	}
	s.mu.Unlock()

	writePage(w, r, tools, s.PageSize)
}

func (s *Server) myTools(w http.ResponseWriter, _ *http.Request, user model.User) {
	s.mu.Lock()
	tools := []model.Tool{}
	for i := len(s.tools) - 1; i >= 0; i-- {
		if s.tools[i].Owner.ID == user.ID {
			tools = append(tools, *s.tools[i])
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, tools)
}

func (s *Server) createTool(w http.ResponseWriter, r *http.Request, user model.User) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Expected multipart form data"}})
		return
	}

	errs := toolFieldErrors(r)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	s.mu.Lock()
	s.nextID++
	now := time.Now().UTC()
	tool := &model.Tool{
		ID:          s.nextID,
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Condition:   r.FormValue("condition"),
		IsAvailable: true,
		Owner:       user,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.attachImage(r, tool)
	s.tools = append(s.tools, tool)
	out := *tool
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateTool(w http.ResponseWriter, r *http.Request, user model.User) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Expected multipart form data"}})
		return
	}

	errs := toolFieldErrors(r)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tool := s.ownedToolLocked(r.PathValue("id"), user.ID)
	if tool == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	tool.Name = r.FormValue("name")
	tool.Category = r.FormValue("category")
	tool.Condition = r.FormValue("condition")
	if v := r.FormValue("is_available"); v != "" {
		tool.IsAvailable, _ = strconv.ParseBool(v)
	}
	tool.UpdatedAt = time.Now().UTC()
	s.attachImage(r, tool)

	writeJSON(w, http.StatusOK, *tool)
}

func (s *Server) deleteTool(w http.ResponseWriter, r *http.Request, user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tool := s.ownedToolLocked(r.PathValue("id"), user.ID)
	if tool == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	s.tools = slices.DeleteFunc(s.tools, func(t *model.Tool) bool { return t.ID == tool.ID })
	s.requests = slices.DeleteFunc(s.requests, func(br *model.BorrowRequest) bool { return br.Tool.ID == tool.ID })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toolStats(w http.ResponseWriter, _ *http.Request, user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.Stats{TotalTools: len(s.tools)}
	for _, t := range s.tools {
		if t.IsAvailable {
			stats.AvailableTools++
		}
		if t.Owner.ID == user.ID {
			stats.MyTools++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) myRequests(w http.ResponseWriter, r *http.Request, user model.User) {
	writePage(w, r, s.filterRequests(func(br *model.BorrowRequest) bool { return br.Borrower.ID == user.ID }), s.PageSize)
}

func (s *Server) incoming(w http.ResponseWriter, r *http.Request, user model.User) {
	writePage(w, r, s.filterRequests(func(br *model.BorrowRequest) bool { return br.Tool.Owner.ID == user.ID }), s.PageSize)
}

func (s *Server) borrowed(w http.ResponseWriter, _ *http.Request, user model.User) {
	reqs := s.filterRequests(func(br *model.BorrowRequest) bool { return br.Borrower.ID == user.ID })
	writeJSON(w, http.StatusOK, map[string]any{"results": reqs})
}

func (s *Server) lent(w http.ResponseWriter, _ *http.Request, user model.User) {
	reqs := s.filterRequests(func(br *model.BorrowRequest) bool { return br.Tool.Owner.ID == user.ID })
	writeJSON(w, http.StatusOK, map[string]any{"results": reqs})
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request, user model.User) {
	var form model.BorrowForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid payload"}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	errs := fieldErrors{}
	tool := s.toolLocked(form.ToolID)
	switch {
	case tool == nil || !tool.IsAvailable:
		errs.add("tool_id", "Tool not found or not available")
	case tool.Owner.ID == user.ID:
		errs.add("tool_id", "You cannot borrow your own tool")
	}
	errs.require("reason", form.Reason)
	if form.Duration < 1 || form.Duration > model.MaxBorrowDays {
		errs.add("duration", "Duration must be between 1 and 30 days")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	for _, br := range s.requests {
		if br.Tool.ID == tool.ID && br.Borrower.ID == user.ID && br.Status == model.StatusPending {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"You already have a pending request for this tool"}})
			return
		}
	}

	s.nextID++
	now := time.Now().UTC()
	br := &model.BorrowRequest{
		ID:        s.nextID,
		Tool:      *tool,
		Borrower:  user,
		Reason:    form.Reason,
		Duration:  form.Duration,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.requests = append(s.requests, br)
	writeJSON(w, http.StatusCreated, s.viewLocked(br))
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request, user model.User) {
	s.transition(w, r, user, model.StatusPending, model.StatusApproved, "Request approved successfully")
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, user model.User) {
	s.transition(w, r, user, model.StatusPending, model.StatusRejected, "Request rejected successfully")
}

func (s *Server) returned(w http.ResponseWriter, r *http.Request, user model.User) {
	s.transition(w, r, user, model.StatusApproved, model.StatusReturned, "Tool marked as returned successfully")
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, user model.User, from, to, message string) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()

	var br *model.BorrowRequest
	for _, candidate := range s.requests {
		if candidate.ID == id && candidate.Tool.Owner.ID == user.ID && candidate.Status == from {
			br = candidate
		}
	}
	if br == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	tool := s.toolLocked(br.Tool.ID)
	switch to {
	case model.StatusApproved:
		tool.IsAvailable = false
		d := model.NewDate(s.Today().AddDate(0, 0, br.Duration))
		br.ReturnDate = &d
		br.BorrowerNotified = false
	case model.StatusRejected:
		br.BorrowerNotified = false
	case model.StatusReturned:
		tool.IsAvailable = true
	}
	br.Status = to
	br.UpdatedAt = time.Now().UTC()

	writeJSON(w, http.StatusOK, model.ActionResponse{Message: message, Request: s.viewLocked(br)})
}

func (s *Server) requestStats(w http.ResponseWriter, _ *http.Request, user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.Stats{
		TotalRequests: len(s.requests),
		TotalUsers:    len(s.accounts),
		TotalTools:    len(s.tools),
	}
	for _, br := range s.requests {
		if br.Tool.Owner.ID == user.ID {
			stats.TotalLent++
		}
		if br.Borrower.ID == user.ID {
			stats.TotalBorrowed++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) notifications(w http.ResponseWriter, _ *http.Request, user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data model.NotificationData
	for _, br := range s.requests {
		if br.Borrower.ID == user.ID && !br.BorrowerNotified &&
			(br.Status == model.StatusApproved || br.Status == model.StatusRejected) {
			data.NewApprovals++
		}
		if br.Tool.Owner.ID == user.ID && !br.OwnerNotified && br.Status == model.StatusPending {
			data.NewRequests++
		}
	}
	data.TotalNotifications = data.NewApprovals + data.NewRequests
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) markRead(w http.ResponseWriter, _ *http.Request, user model.User) {
	s.mu.Lock()
	for _, br := range s.requests {
		if br.Borrower.ID == user.ID {
			br.BorrowerNotified = true
		}
		if br.Tool.Owner.ID == user.ID {
			br.OwnerNotified = true
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notifications marked as read"})
}

func (s *Server) filterRequests(keep func(*model.BorrowRequest) bool) []model.BorrowRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.BorrowRequest{}
	for i := len(s.requests) - 1; i >= 0; i-- {
		if keep(s.requests[i]) {
			out = append(out, s.viewLocked(s.requests[i]))
		}
	}
	return out
}

// viewLocked serializes a request with its tool's current state and the
// derived overdue flag.
func (s *Server) viewLocked(br *model.BorrowRequest) model.BorrowRequest {
	out := *br
	if t := s.toolLocked(br.Tool.ID); t != nil {
		out.Tool = *t
	}
	if br.Status == model.StatusApproved && br.ReturnDate != nil {
		today := model.NewDate(s.Today())
		out.IsOverdue = today.After(br.ReturnDate.Time)
	}
	return out
}

func (s *Server) attachImage(r *http.Request, tool *model.Tool) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return
	}
	file.Close()
	tool.Image = fmt.Sprintf("tools/%d/%s", tool.Owner.ID, header.Filename)
	tool.ImageURL = s.URL + "/media/" + tool.Image
}

func (s *Server) userLocked(id int64) model.User {
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user
		}
	}
	return model.User{}
}

func (s *Server) toolLocked(id int64) *model.Tool {
	for _, t := range s.tools {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *Server) ownedToolLocked(rawID string, ownerID int64) *model.Tool {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil
	}
	t := s.toolLocked(id)
	if t == nil || t.Owner.ID != ownerID {
		return nil
	}
	return t
}

func (s *Server) issueTokenLocked(userID int64) string {
	buf := make([]byte, 20)
	rand.Read(buf)
	token := hex.EncodeToString(buf)
	s.tokens[token] = userID
	return token
}

type fieldErrors map[string][]string

func (e fieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.add(field, "This field is required.")
	}
}

func toolFieldErrors(r *http.Request) fieldErrors {
	errs := fieldErrors{}
	errs.require("name", r.FormValue("name"))
	if !slices.Contains(model.Categories, r.FormValue("category")) {
		errs.add("category", fmt.Sprintf("%q is not a valid choice.", r.FormValue("category")))
	}
	if !slices.Contains(model.Conditions, r.FormValue("condition")) {
		errs.add("condition", fmt.Sprintf("%q is not a valid choice.", r.FormValue("condition")))
	}
	return errs
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T, size int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	start := (page - 1) * size
	if start > len(items) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Invalid page."})
		return
	}
	end := min(start+size, len(items))

	link := func(p int) *string {
		u := fmt.Sprintf("http://%s%s?page=%d", r.Host, r.URL.Path, p)
		return &u
	}

	var next, prev *string
	if end < len(items) {
		next = link(page + 1)
	}
	if page > 1 {
		prev = link(page - 1)
	}

	writeJSON(w, http.StatusOK, model.Page[T]{
		Count:    len(items),
		Next:     next,
		Previous: prev,
		Results:  items[start:end],
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
