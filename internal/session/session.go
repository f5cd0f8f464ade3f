// Package session keeps the authenticated sessions of the front-end: the
// backend token and user for each login, its notification poller, and the
// view state pages share between requests.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/erazemk/toolshare/internal/model"
	"github.com/erazemk/toolshare/internal/notify"
)

// Session is one logged-in user.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	token       string
	user        model.User
	tools       []model.Tool
	toolsLoaded bool
	poller      *notify.Poller

	lastSeen   time.Time
	lastStored time.Time
}

// User returns the user record stored at login.
func (s *Session) User() model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) setUser(u model.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// Token returns the backend token.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// LastSeen returns when the session was last resolved for a request.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// touch marks the session used at now and reports whether the stored
// last_seen_at is older than every and should be written.
func (s *Session) touch(now time.Time, every time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
	if now.Sub(s.lastStored) < every {
		return false
	}
	s.lastStored = now
	return true
}

// Poller returns the session's notification poller.
func (s *Session) Poller() *notify.Poller {
	return s.poller
}

// Notifications returns the latest unread counters.
func (s *Session) Notifications() model.NotificationData {
	return s.poller.Counts()
}

// SetTools replaces the cached list of the user's own tools.
func (s *Session) SetTools(tools []model.Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = slices.Clone(tools)
	s.toolsLoaded = true
}

// Tools returns a copy of the cached tool list and whether it was loaded.
func (s *Session) Tools() ([]model.Tool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tools), s.toolsLoaded
}

// ReplaceTool swaps the cached tool with the same ID for t. It reports
// whether the tool was in the list.
func (s *Session) ReplaceTool(t model.Tool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.tools, func(x model.Tool) bool { return x.ID == t.ID })
	if i < 0 {
		return false
	}
	s.tools[i] = t
	return true
}

// RemoveTool drops a tool from the cached list. It reports whether the tool
// was in the list.
func (s *Session) RemoveTool(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tools)
	s.tools = slices.DeleteFunc(s.tools, func(x model.Tool) bool { return x.ID == id })
	return len(s.tools) != n
}

func (s *Session) clearView() {
	s.mu.Lock()
	s.tools = nil
	s.toolsLoaded = false
	s.mu.Unlock()
}
