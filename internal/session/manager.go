package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/toolshare/internal/auth"
	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/model"
	"github.com/erazemk/toolshare/internal/notify"
	"github.com/erazemk/toolshare/internal/store"
)

// ErrNoSession is returned when a session ID names no live or stored session.
var ErrNoSession = errors.New("no such session")

// Options configures a Manager.
type Options struct {
	// PollInterval is how often notification counters are refreshed.
	PollInterval time.Duration
	// NoPolling leaves pollers stopped; callers refresh on demand.
	NoPolling bool
	// MaxAge is how long a session lives after login. Defaults to
	// auth.TokenExpiry, the lifetime of the cookie naming it.
	MaxAge time.Duration
	// IdleTimeout unloads live sessions not used for this long. They stay
	// stored and are restored by the next Get. Zero keeps them loaded.
	IdleTimeout time.Duration
}

// touchInterval limits how often a live hit writes last_seen_at.
const touchInterval = time.Minute

// Manager owns every session of the process.
type Manager struct {
	db   *sql.DB
	api  *client.Client
	key  auth.Key
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	live map[string]*Session
}

// NewManager creates a manager that persists sessions in db and talks to the
// backend through api, which must not carry a token.
func NewManager(ctx context.Context, db *sql.DB, api *client.Client, opts Options) (*Manager, error) {
	hexKey, err := store.GetTokenKey(ctx, db)
	if err != nil {
		return nil, err
	}
	key, err := auth.ParseKey(hexKey)
	if err != nil {
		return nil, fmt.Errorf("loading token key: %w", err)
	}

	if opts.MaxAge <= 0 {
		opts.MaxAge = auth.TokenExpiry
	}

	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &Manager{
		db:     db,
		api:    api,
		key:    key,
		opts:   opts,
		ctx:    pollCtx,
		cancel: cancel,
		live:   make(map[string]*Session),
	}, nil
}

// Login validates the form, authenticates against the backend and starts a
// session.
func (m *Manager) Login(ctx context.Context, form model.LoginForm) (*Session, error) {
	if err := model.Validate(form); err != nil {
		return nil, err
	}
	resp, err := m.api.Login(ctx, form.Email, form.Password)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, resp)
}

// Signup validates the form, creates the account and starts a session.
func (m *Manager) Signup(ctx context.Context, form model.SignupForm) (*Session, error) {
	if err := model.Validate(form); err != nil {
		return nil, err
	}
	resp, err := m.api.Signup(ctx, form)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, resp)
}

func (m *Manager) establish(ctx context.Context, resp *model.AuthResponse) (*Session, error) {
	if resp.Token == "" {
		return nil, fmt.Errorf("backend returned no token")
	}

	sealed, err := auth.SealToken(m.key, resp.Token)
	if err != nil {
		return nil, err
	}

	rec := &store.Session{
		ID:          uuid.NewString(),
		TokenSealed: sealed,
		User:        resp.User,
	}
	if err := store.SaveSession(ctx, m.db, rec); err != nil {
		return nil, err
	}

	sess := m.register(rec.ID, rec.CreatedAt, resp.Token, resp.User)
	slog.Info("session started", "session", sess.ID, "user", resp.User.Username)
	return sess, nil
}

// register makes a session live and starts its poller. If the ID is already
// live, the existing session wins.
func (m *Manager) register(id string, createdAt time.Time, token string, user model.User) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.live[id]; ok {
		return existing
	}

	sess := &Session{
		ID:        id,
		CreatedAt: createdAt,
		token:     token,
		user:      user,
		lastSeen:  time.Now(),
	}
	sess.poller = notify.New(m.Client(sess), m.opts.PollInterval)
	m.live[id] = sess

	if !m.opts.NoPolling {
		sess.poller.Start(m.ctx)
	}
	return sess
}

// Get returns a live session, restoring it from storage after a restart.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	sess, ok := m.live[id]
	m.mu.Unlock()
	if ok {
		if now := time.Now(); sess.touch(now, touchInterval) {
			if err := store.TouchSession(ctx, m.db, id, now); err != nil {
				slog.Warn("failed to record session use", "session", id, "error", err)
			}
		}
		return sess, nil
	}

	rec, err := store.GetSession(ctx, m.db, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoSession
	}

	token, err := auth.OpenToken(m.key, rec.TokenSealed)
	if err != nil {
		slog.Warn("discarding unreadable session", "session", id, "error", err)
		if err := store.DeleteSession(ctx, m.db, id); err != nil {
			slog.Error("deleting session", "session", id, "error", err)
		}
		return nil, ErrNoSession
	}

	slog.Info("session restored", "session", id, "user", rec.User.Username)
	return m.register(rec.ID, rec.CreatedAt, token, rec.User), nil
}

// Client returns an API client authenticated as the session. A 401 from any
// call made with it expires the session.
func (m *Manager) Client(sess *Session) *client.Client {
	c := m.api.WithToken(sess.Token())
	id := sess.ID
	c.OnUnauthorized = func(ctx context.Context) {
		m.Expire(ctx, id)
	}
	return c
}

// RefreshUser re-reads the user's profile and stores it with the session.
func (m *Manager) RefreshUser(ctx context.Context, sess *Session) (*model.User, error) {
	user, err := m.Client(sess).CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	sess.setUser(*user)
	if err := store.UpdateSessionUser(ctx, m.db, sess.ID, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout invalidates the token on the backend, best effort, and ends the
// session locally whatever the backend says.
func (m *Manager) Logout(ctx context.Context, id string) error {
	sess, err := m.Get(ctx, id)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := m.Client(sess).Logout(ctx); err != nil && !client.IsUnauthorized(err) {
		slog.Warn("backend logout failed", "session", id, "error", err)
	}

	slog.Info("session ended", "session", id, "user", sess.User().Username)
	return m.teardown(ctx, id)
}

// Expire ends a session whose token the backend rejected, without calling
// the backend.
func (m *Manager) Expire(ctx context.Context, id string) {
	slog.Warn("session expired", "session", id)
	if err := m.teardown(ctx, id); err != nil {
		slog.Error("expiring session", "session", id, "error", err)
	}
}

// teardown is safe to call more than once for the same session.
func (m *Manager) teardown(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.live[id]
	delete(m.live, id)
	m.mu.Unlock()

	if ok {
		sess.poller.StopContext(ctx)
		sess.clearView()
	}

	return store.DeleteSession(context.WithoutCancel(ctx), m.db, id)
}

// Sweep ends live sessions older than Options.MaxAge, logging them out of
// the backend, and unloads sessions idle longer than Options.IdleTimeout.
// Stored sessions unused for MaxAge are deleted.
func (m *Manager) Sweep(ctx context.Context, now time.Time) (ended, unloaded int, err error) {
	var expired, idle []*Session

	m.mu.Lock()
	for id, s := range m.live {
		switch {
		case now.Sub(s.CreatedAt) >= m.opts.MaxAge:
			expired = append(expired, s)
		case m.opts.IdleTimeout > 0 && now.Sub(s.LastSeen()) >= m.opts.IdleTimeout:
			idle = append(idle, s)
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.poller.StopContext(ctx)
		s.clearView()
		slog.Info("session unloaded", "session", s.ID, "user", s.User().Username)
	}
	unloaded = len(idle)

	for _, s := range expired {
		if err := m.Logout(ctx, s.ID); err != nil {
			return ended, unloaded, err
		}
		ended++
	}

	if _, err := store.PruneSessions(ctx, m.db, now.Add(-m.opts.MaxAge)); err != nil {
		return ended, unloaded, err
	}
	return ended, unloaded, nil
}

// Live returns the number of live sessions.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Close stops every poller. Stored sessions are kept so they can be restored
// by the next process.
func (m *Manager) Close() {
	m.cancel()

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.live))
	for _, s := range m.live {
		sessions = append(sessions, s)
	}
	clear(m.live)
	m.mu.Unlock()

	for _, s := range sessions {
		s.poller.Stop()
	}
}
