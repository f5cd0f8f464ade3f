package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/model"
)

// borrowRedirectDelay is how long the success banner stays up before the
// browser moves on to My Requests.
const borrowRedirectDelay = 1.5

type borrowPage struct {
	PageData
	Tool     *model.Tool
	NotFound bool
	Form     model.BorrowForm
	MaxDays  int
	Done     bool
}

// BorrowPage handles GET /borrow-tool/{id}.
func (s *Server) BorrowPage(w http.ResponseWriter, r *http.Request) {
	data := &borrowPage{
		PageData: s.page(r, "Borrow Tool"),
		Form:     model.BorrowForm{Duration: 7},
		MaxDays:  model.MaxBorrowDays,
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		data.NotFound = true
		s.Templates.RenderStatus(w, http.StatusNotFound, "borrow_tool.html", data)
		return
	}

	if !s.loadBorrowTool(w, r, data, id) {
		return
	}
	s.Templates.Render(w, "borrow_tool.html", data)
}

// BorrowSubmit handles POST /borrow-tool/{id}. The form is validated before
// any request reaches the backend.
func (s *Server) BorrowSubmit(w http.ResponseWriter, r *http.Request) {
	data := &borrowPage{
		PageData: s.page(r, "Borrow Tool"),
		MaxDays:  model.MaxBorrowDays,
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		data.NotFound = true
		s.Templates.RenderStatus(w, http.StatusNotFound, "borrow_tool.html", data)
		return
	}

	duration, convErr := strconv.Atoi(strings.TrimSpace(r.FormValue("duration")))
	data.Form = model.BorrowForm{
		ToolID:   id,
		Reason:   strings.TrimSpace(r.FormValue("reason")),
		Duration: duration,
	}

	err = model.Validate(data.Form)
	if convErr != nil && err == nil {
		err = &model.ValidationError{Field: "duration", Message: fmt.Sprintf("Duration must be between 1 and %d days", model.MaxBorrowDays)}
	}
	if err == nil {
		var req *model.BorrowRequest
		req, err = s.client(r).CreateRequest(r.Context(), data.Form)
		if err == nil {
			slog.Info("borrow request created", "user", data.User.Username, "tool", req.Tool.Name, "days", req.Duration)
			data.Tool = &req.Tool
			data.Done = true
			data.Success = "Borrow request submitted successfully!"
			data.RefreshURL = "/my-requests"
			data.RefreshSeconds = borrowRedirectDelay
			s.Templates.Render(w, "borrow_tool.html", data)
			return
		}
	}

	if s.sessionEnded(w, r, err) {
		return
	}
	message := userMessage(err, "Failed to submit request. Please try again.")

	if !s.loadBorrowTool(w, r, data, id) {
		return
	}
	data.Error = message
	s.Templates.Render(w, "borrow_tool.html", data)
}

// loadBorrowTool looks the tool up in the community list. It returns false
// when the response has already been written.
func (s *Server) loadBorrowTool(w http.ResponseWriter, r *http.Request, data *borrowPage, id int64) bool {
	tool, err := s.client(r).FindTool(r.Context(), id)
	switch {
	case err == nil:
		data.Tool = tool
	case s.sessionEnded(w, r, err):
		return false
	case client.IsNotFound(err):
		data.NotFound = true
		data.Error = "Tool not found"
	default:
		slog.Warn("failed to load tool", "tool", id, "error", err)
		data.Error = "Failed to load tool details"
	}
	return true
}

type requestsPage struct {
	PageData
	Requests []model.BorrowRequest
	Page     int
	HasNext  bool
	HasPrev  bool
}

// MyRequestsPage handles GET /my-requests.
func (s *Server) MyRequestsPage(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	sess := SessionFrom(r.Context())

	reqs, err := s.client(r).MyRequests(r.Context(), page)
	if err == nil {
		err = s.refreshNotifications(r.Context(), sess)
	}

	data := &requestsPage{PageData: s.page(r, "My Requests"), Page: page}
	if err != nil {
		if s.sessionEnded(w, r, err) {
			return
		}
		slog.Warn("failed to load requests", "error", err)
		data.Error = "Failed to load your requests"
	} else {
		data.Requests = reqs.Results
		data.HasNext = reqs.HasNext()
		data.HasPrev = reqs.HasPrevious()
	}
	s.Templates.Render(w, "my_requests.html", data)
}

var requestActionResult = map[string]struct{ success, failure string }{
	model.ActionApprove:  {"Request approved successfully!", "Failed to approve request"},
	model.ActionReject:   {"Request rejected successfully!", "Failed to reject request"},
	model.ActionReturned: {"Tool marked as returned successfully!", "Failed to mark as returned"},
}

// IncomingRequestsPage handles GET /incoming-requests.
func (s *Server) IncomingRequestsPage(w http.ResponseWriter, r *http.Request) {
	data := &requestsPage{PageData: s.page(r, "Incoming Requests")}
	if res, ok := requestActionResult[r.URL.Query().Get("done")]; ok {
		data.Success = res.success
	}
	s.renderIncoming(w, r, data)
}

// IncomingActionSubmit handles POST /incoming-requests/{id}/{action}.
func (s *Server) IncomingActionSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	action := r.PathValue("action")
	res, known := requestActionResult[action]
	if err != nil || !known {
		http.NotFound(w, r)
		return
	}

	sess := SessionFrom(r.Context())
	resp, err := s.client(r).Act(r.Context(), id, action)
	if err == nil {
		slog.Info("request updated", "user", sess.User().Username, "request", id, "status", resp.Request.Status)
		if err := s.refreshNotifications(r.Context(), sess); s.sessionEnded(w, r, err) {
			return
		}
		http.Redirect(w, r, "/incoming-requests?done="+action, http.StatusSeeOther)
		return
	}

	if s.sessionEnded(w, r, err) {
		return
	}
	slog.Warn(res.failure, "request", id, "error", err)

	data := &requestsPage{PageData: s.page(r, "Incoming Requests")}
	data.Error = res.failure
	s.renderIncoming(w, r, data)
}

// renderIncoming re-fetches the incoming list and the notification counters.
func (s *Server) renderIncoming(w http.ResponseWriter, r *http.Request, data *requestsPage) {
	data.Page = pageParam(r)
	sess := SessionFrom(r.Context())

	reqs, err := s.client(r).IncomingRequests(r.Context(), data.Page)
	if err == nil {
		err = s.refreshNotifications(r.Context(), sess)
	}
	if err != nil {
		if s.sessionEnded(w, r, err) {
			return
		}
		slog.Warn("failed to load incoming requests", "error", err)
		data.Error = "Failed to load incoming requests"
	} else {
		data.Requests = reqs.Results
		data.HasNext = reqs.HasNext()
		data.HasPrev = reqs.HasPrevious()
	}

	// Counters may have changed since the base data was built.
	data.PageData = s.withCounts(r, data.PageData)
	s.Templates.Render(w, "incoming_requests.html", data)
}

type approvedPage struct {
	PageData
	Requests []model.BorrowRequest
}

// BorrowedToolsPage handles GET /my-borrowed-tools.
func (s *Server) BorrowedToolsPage(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.client(r).BorrowedTools(r.Context())
	data := &approvedPage{PageData: s.page(r, "My Borrowed Tools")}
	if err != nil {
		if s.sessionEnded(w, r, err) {
			return
		}
		slog.Warn("failed to load borrowed tools", "error", err)
		data.Error = "Failed to fetch borrowed tools"
	}
	data.Requests = model.Approved(reqs)
	s.Templates.Render(w, "borrowed_tools.html", data)
}

// LentToolsPage handles GET /lent-tools.
func (s *Server) LentToolsPage(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.client(r).LentTools(r.Context())
	data := &approvedPage{PageData: s.page(r, "Lent Tools")}
	if err != nil {
		if s.sessionEnded(w, r, err) {
			return
		}
		slog.Warn("failed to load lent tools", "error", err)
		data.Error = "Failed to load lent tools"
	}
	data.Requests = model.Approved(reqs)
	s.Templates.Render(w, "lent_tools.html", data)
}

func pageParam(r *http.Request) int {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	return max(page, 1)
}
