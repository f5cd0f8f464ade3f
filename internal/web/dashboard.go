package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/toolshare/internal/model"
)

type dashboardPage struct {
	PageData
	Tools    []model.Tool
	Stats    model.Stats
	Query    string
	Page     int
	HasNext  bool
	HasPrev  bool
	Filtered bool
}

// Dashboard handles GET /dashboard.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	page = max(page, 1)
	query := r.URL.Query().Get("q")

	c := s.client(r)

	var (
		tools        *model.Page[model.Tool]
		toolStats    *model.Stats
		requestStats *model.Stats
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		tools, err = c.Tools(ctx, page)
		return err
	})
	g.Go(func() (err error) {
		toolStats, err = c.ToolStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		requestStats, err = c.RequestStats(ctx)
		return err
	})

	data := &dashboardPage{
		PageData: s.page(r, "Dashboard"),
		Query:    query,
		Page:     page,
		Filtered: query != "",
	}

	if err := g.Wait(); err != nil {
		if s.sessionEnded(w, r, err) {
			return
		}
		slog.Warn("failed to load dashboard", "error", err)
		data.Error = "Failed to load dashboard data"
		s.Templates.Render(w, "dashboard.html", data)
		return
	}

	data.Tools = model.FilterTools(tools.Results, query)
	data.Stats = toolStats.Merge(*requestStats)
	data.HasNext = tools.HasNext()
	data.HasPrev = tools.HasPrevious()
	s.Templates.Render(w, "dashboard.html", data)
}
