package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/imaging"
	"github.com/erazemk/toolshare/internal/model"
)

// maxFormSize bounds a tool form: the image plus room for the other fields.
const maxFormSize = imaging.MaxUploadSize + 1<<20

type addToolPage struct {
	PageData
	Form       model.ToolForm
	Categories []string
	Conditions []string
}

// AddToolPage handles GET /add-tool.
func (s *Server) AddToolPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "add_tool.html", &addToolPage{
		PageData:   s.page(r, "Add New Tool"),
		Form:       model.ToolForm{Category: model.CategoryPowerTools, Condition: model.ConditionGood},
		Categories: model.Categories,
		Conditions: model.Conditions,
	})
}

// AddToolSubmit handles POST /add-tool.
func (s *Server) AddToolSubmit(w http.ResponseWriter, r *http.Request) {
	data := &addToolPage{
		PageData:   s.page(r, "Add New Tool"),
		Categories: model.Categories,
		Conditions: model.Conditions,
	}

	form, img, err := parseToolForm(w, r)
	data.Form = form
	if err == nil {
		err = model.Validate(form)
	}
	if err == nil {
		var tool *model.Tool
		tool, err = s.client(r).CreateTool(r.Context(), form, img)
		if err == nil {
			slog.Info("tool created", "user", data.User.Username, "tool", tool.Name)
			http.Redirect(w, r, "/my-tools?done=add", http.StatusSeeOther)
			return
		}
	}

	if s.sessionEnded(w, r, err) {
		return
	}
	data.Error = userMessage(err, "Failed to add tool. Please try again.")
	s.Templates.Render(w, "add_tool.html", data)
}

type myToolsPage struct {
	PageData
	Tools     []model.Tool
	Total     int
	Available int
	Borrowed  int
	Lent      int

	Confirm     string
	ConfirmTool *model.Tool

	EditID      int64
	EditForm    model.ToolForm
	UpdateError string
	DeleteError string

	Categories []string
	Conditions []string
}

var toolSuccess = map[string]string{
	"add":    "Tool added successfully!",
	"update": "Tool updated successfully!",
	"delete": "Tool deleted successfully!",
}

// MyToolsPage handles GET /my-tools. The confirm, edit and done parameters
// select the confirmation step, the edit form and the success banner; in
// those modes the session's tool list is reused instead of re-fetched.
func (s *Server) MyToolsPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := s.newMyToolsPage(r)
	data.Success = toolSuccess[q.Get("done")]

	id, _ := strconv.ParseInt(q.Get("id"), 10, 64)
	switch q.Get("confirm") {
	case "edit", "delete":
		data.Confirm = q.Get("confirm")
		data.ConfirmTool = &model.Tool{ID: id}
	}
	data.EditID, _ = strconv.ParseInt(q.Get("edit"), 10, 64)

	useCache := data.Confirm != "" || data.EditID != 0 || q.Get("done") == "update" || q.Get("done") == "delete"
	s.renderMyTools(w, r, data, useCache)
}

// UpdateToolSubmit handles POST /my-tools/{id}.
func (s *Server) UpdateToolSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sess := SessionFrom(r.Context())

	form, img, err := parseToolForm(w, r)
	if err == nil {
		err = model.Validate(form)
	}
	if err == nil {
		var tool *model.Tool
		tool, err = s.client(r).UpdateTool(r.Context(), id, form, img)
		if err == nil {
			sess.ReplaceTool(*tool)
			slog.Info("tool updated", "user", sess.User().Username, "tool", tool.Name, "available", tool.IsAvailable)
			http.Redirect(w, r, "/my-tools?done=update", http.StatusSeeOther)
			return
		}
	}

	if s.sessionEnded(w, r, err) {
		return
	}

	data := s.newMyToolsPage(r)
	data.EditID = id
	data.EditForm = form
	data.UpdateError = toolActionMessage(err, "Failed to update tool")
	s.renderMyTools(w, r, data, true)
}

// DeleteToolSubmit handles POST /my-tools/{id}/delete.
func (s *Server) DeleteToolSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sess := SessionFrom(r.Context())

	err = s.client(r).DeleteTool(r.Context(), id)
	if err == nil {
		sess.RemoveTool(id)
		slog.Info("tool deleted", "user", sess.User().Username, "tool", id)
		http.Redirect(w, r, "/my-tools?done=delete", http.StatusSeeOther)
		return
	}

	if s.sessionEnded(w, r, err) {
		return
	}

	data := s.newMyToolsPage(r)
	data.DeleteError = toolActionMessage(err, "Failed to delete tool")
	s.renderMyTools(w, r, data, true)
}

func (s *Server) newMyToolsPage(r *http.Request) *myToolsPage {
	return &myToolsPage{
		PageData:   s.page(r, "My Tools"),
		Categories: model.Categories,
		Conditions: model.Conditions,
	}
}

// renderMyTools loads the tool list and the borrowed and lent counters, then
// renders the page. With useCache the session's tool list is used when it has
// been loaded before.
func (s *Server) renderMyTools(w http.ResponseWriter, r *http.Request, data *myToolsPage, useCache bool) {
	sess := SessionFrom(r.Context())
	c := s.client(r)

	tools, cached := sess.Tools()
	var borrowed, lent []model.BorrowRequest

	g, ctx := errgroup.WithContext(r.Context())
	if !useCache || !cached {
		g.Go(func() (err error) {
			tools, err = c.MyTools(ctx)
			return err
		})
	}
	g.Go(func() (err error) {
		borrowed, err = c.BorrowedTools(ctx)
		return err
	})
	g.Go(func() (err error) {
		lent, err = c.LentTools(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if s.sessionEnded(w, r, err) {
			return
		}
		slog.Warn("failed to load tools", "error", err)
		data.Error = "Failed to load your tools"
		s.Templates.Render(w, "my_tools.html", data)
		return
	}
	if !useCache || !cached {
		sess.SetTools(tools)
	}

	data.Tools = tools
	data.Total = len(tools)
	data.Available = model.CountAvailable(tools)
	data.Borrowed = len(borrowed)
	data.Lent = len(lent)

	if data.ConfirmTool != nil {
		data.ConfirmTool = findTool(tools, data.ConfirmTool.ID)
		if data.ConfirmTool == nil {
			data.Confirm = ""
		}
	}
	if data.EditID != 0 {
		t := findTool(tools, data.EditID)
		switch {
		case t == nil:
			data.EditID = 0
		case data.EditForm == (model.ToolForm{}):
			data.EditForm = model.FormFromTool(*t)
		}
	}

	s.Templates.Render(w, "my_tools.html", data)
}

func findTool(tools []model.Tool, id int64) *model.Tool {
	for i := range tools {
		if tools[i].ID == id {
			return &tools[i]
		}
	}
	return nil
}

// parseToolForm reads a multipart tool form and prepares its optional image.
func parseToolForm(w http.ResponseWriter, r *http.Request) (model.ToolForm, *client.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return model.ToolForm{}, nil, &model.ValidationError{Field: "image", Message: imaging.ErrTooLarge.Error()}
		}
		return model.ToolForm{}, nil, fmt.Errorf("parsing tool form: %w", err)
	}

	form := model.ToolForm{
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Condition:   r.FormValue("condition"),
		IsAvailable: r.FormValue("is_available") != "",
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil, nil
	}
	if err != nil {
		return form, nil, fmt.Errorf("reading image: %w", err)
	}
	defer file.Close()
	if header.Size == 0 {
		return form, nil, nil
	}

	up, err := imaging.Prepare(header.Filename, file)
	if err != nil {
		return form, nil, &model.ValidationError{Field: "image", Message: imageMessage(err)}
	}
	return form, &client.Image{Filename: up.Filename, MIME: up.MIME, Data: up.Data}, nil
}

func imageMessage(err error) string {
	if errors.Is(err, imaging.ErrTooLarge) || errors.Is(err, imaging.ErrTooManyPixels) {
		return err.Error()
	}
	return "Please choose a PNG, JPG, GIF or WebP image"
}

// toolActionMessage keeps validation messages and otherwise shows the
// action's own failure text.
func toolActionMessage(err error, fallback string) string {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	slog.Warn(fallback, "error", err)
	return fallback
}
