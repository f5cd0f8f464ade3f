package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/erazemk/toolshare/internal/apitest"
	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/db"
	"github.com/erazemk/toolshare/internal/model"
	"github.com/erazemk/toolshare/internal/session"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	site     *httptest.Server
	backend  *apitest.Server
	sessions *session.Manager
	drill    model.Tool
}

// setupTestSite starts the fake backend with two neighbors, alice owning a
// drill, and serves the front-end against it.
func setupTestSite(t *testing.T) *testEnv {
	t.Helper()

	backend := apitest.NewServer(t)
	alice := backend.AddUser("alice", "alice@example.com", "password")
	backend.AddUser("bob", "bob@example.com", "password")
	drill := backend.AddTool(alice.ID, "Drill", model.CategoryPowerTools, model.ConditionGood)

	sessions, err := session.NewManager(context.Background(), db.NewTestDB(t), client.New(backend.APIURL(), nil), session.Options{NoPolling: true})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(sessions.Close)

	router, err := NewRouter(sessions, Options{JWTSecret: testJWTSecret})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	site := httptest.NewServer(router)
	t.Cleanup(site.Close)

	return &testEnv{site: site, backend: backend, sessions: sessions, drill: drill}
}

type browser struct {
	t    *testing.T
	base string
	http *http.Client
}

func newBrowser(t *testing.T, env *testEnv) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, base: env.site.URL, http: &http.Client{Jar: jar}}
}

// page holds a response after redirects were followed.
type page struct {
	status int
	path   string
	body   string
}

func (b *browser) read(resp *http.Response, err error) page {
	b.t.Helper()
	if err != nil {
		b.t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return page{status: resp.StatusCode, path: resp.Request.URL.Path, body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	return b.read(b.http.Get(b.base + path))
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	return b.read(b.http.PostForm(b.base+path, form))
}

func (b *browser) postMultipart(path string, fields map[string]string) page {
	b.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return b.read(b.http.Post(b.base+path, mw.FormDataContentType(), &buf))
}

func (b *browser) login(email string) {
	b.t.Helper()
	p := b.post("/login", url.Values{"email": {email}, "password": {"password"}})
	if p.path != "/dashboard" {
		b.t.Fatalf("login as %s ended on %s: %s", email, p.path, p.body)
	}
}

func TestRouteGuardRedirectsToLogin(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)

	for _, path := range []string{"/", "/dashboard", "/my-tools", "/incoming-requests", "/lent-tools"} {
		p := b.get(path)
		if p.path != "/login" {
			t.Errorf("GET %s: expected redirect to /login, ended on %s", path, p.path)
		}
	}
}

func TestRejectsForgedCookie(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)

	u, _ := url.Parse(env.site.URL)
	b.http.Jar.SetCookies(u, []*http.Cookie{{Name: cookieName, Value: "not-a-token", Path: "/"}})

	if p := b.get("/dashboard"); p.path != "/login" {
		t.Errorf("expected redirect to /login, ended on %s", p.path)
	}
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)

	p := b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong"}})
	if p.path != "/login" {
		t.Errorf("expected to stay on /login, got %s", p.path)
	}
	if !strings.Contains(p.body, "Invalid credentials") {
		t.Error("expected backend message in page")
	}
	if env.sessions.Live() != 0 {
		t.Errorf("expected no live sessions, got %d", env.sessions.Live())
	}
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)
	b.login("bob@example.com")

	if p := b.get("/login"); p.path != "/dashboard" {
		t.Errorf("expected redirect to /dashboard, ended on %s", p.path)
	}
}

func TestLoginReplacesBrowserSession(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)

	b.login("bob@example.com")
	b.login("bob@example.com")
	b.login("alice@example.com")

	if n := env.sessions.Live(); n != 1 {
		t.Errorf("expected one live session, got %d", n)
	}
	if n := env.backend.Hits("POST /api/auth/logout/"); n != 2 {
		t.Errorf("expected the replaced sessions to be logged out, got %d logouts", n)
	}
	if p := b.get("/dashboard"); !strings.Contains(p.body, "Welcome back, alice!") {
		t.Error("expected the newest login to be signed in")
	}

	p := b.post("/signup", url.Values{
		"username":         {"dave"},
		"email":            {"dave@example.com"},
		"phone":            {"555-0102"},
		"block_no":         {"C"},
		"house_no":         {"3"},
		"password":         {"secret"},
		"confirm_password": {"secret"},
	})
	if !strings.Contains(p.body, "Welcome back, dave!") {
		t.Fatalf("expected signup to sign in dave, ended on %s", p.path)
	}
	if n := env.sessions.Live(); n != 1 {
		t.Errorf("expected one live session after signup, got %d", n)
	}
}

func TestSignup(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)

	form := url.Values{
		"username":         {"carol"},
		"email":            {"carol@example.com"},
		"phone":            {"555-0101"},
		"block_no":         {"B"},
		"house_no":         {"12"},
		"password":         {"secret"},
		"confirm_password": {"secret"},
	}
	p := b.post("/signup", form)
	if p.path != "/dashboard" {
		t.Fatalf("expected dashboard, ended on %s", p.path)
	}
	if !strings.Contains(p.body, "Welcome back, carol!") {
		t.Error("expected greeting for new user")
	}

	// Same email again from a fresh browser.
	p = newBrowser(t, env).post("/signup", form)
	if !strings.Contains(p.body, "user with this email already exists.") {
		t.Error("expected duplicate email message")
	}
}

func TestSignupPasswordMismatchStaysLocal(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)

	p := b.post("/signup", url.Values{
		"username":         {"carol"},
		"email":            {"carol@example.com"},
		"phone":            {"555-0101"},
		"block_no":         {"B"},
		"house_no":         {"12"},
		"password":         {"secret"},
		"confirm_password": {"other"},
	})
	if p.path != "/signup" {
		t.Errorf("expected to stay on /signup, got %s", p.path)
	}
	if env.backend.Hits("POST /api/auth/signup/") != 0 {
		t.Error("mismatched passwords reached the backend")
	}
}

func TestBorrowApproveReturnFlow(t *testing.T) {
	env := setupTestSite(t)
	bob := newBrowser(t, env)
	bob.login("bob@example.com")

	p := bob.get("/dashboard")
	if !strings.Contains(p.body, "Drill") {
		t.Fatal("expected Drill on dashboard")
	}

	borrowPath := "/borrow-tool/" + itoa(env.drill.ID)
	p = bob.get(borrowPath)
	if p.status != http.StatusOK || !strings.Contains(p.body, "Drill") {
		t.Fatalf("borrow page: %d", p.status)
	}

	p = bob.post(borrowPath, url.Values{"reason": {"Hanging shelves"}, "duration": {"3"}})
	if !strings.Contains(p.body, "Borrow request submitted successfully!") {
		t.Fatalf("expected success banner: %s", p.body)
	}
	if !strings.Contains(p.body, `http-equiv="refresh"`) || !strings.Contains(p.body, "/my-requests") {
		t.Error("expected delayed redirect to My Requests")
	}

	p = bob.get("/my-requests")
	if !strings.Contains(p.body, "Pending") {
		t.Error("expected pending request")
	}

	// The request is the first object created after the fixtures.
	reqID := env.drill.ID + 1
	if _, ok := env.backend.Request(reqID); !ok {
		t.Fatalf("request %d not found in backend", reqID)
	}

	alice := newBrowser(t, env)
	alice.login("alice@example.com")

	p = alice.get("/incoming-requests")
	if !strings.Contains(p.body, "Hanging shelves") || !strings.Contains(p.body, "Approve") {
		t.Fatal("expected pending request with approve action")
	}
	if !strings.Contains(p.body, "/incoming-requests?seen=1") {
		t.Error("expected badge link on Incoming Requests")
	}

	p = alice.post("/incoming-requests/"+itoa(reqID)+"/approve", nil)
	if p.path != "/incoming-requests" {
		t.Errorf("expected redirect back to incoming, got %s", p.path)
	}
	if !strings.Contains(p.body, "Request approved successfully!") {
		t.Error("expected approval banner")
	}
	if !strings.Contains(p.body, "Mark Returned") {
		t.Error("expected Mark Returned action after approval")
	}
	reqPath := "/incoming-requests/" + itoa(reqID) + "/"
	for _, action := range []string{"approve", "reject"} {
		if strings.Contains(p.body, reqPath+action) {
			t.Errorf("approved request still offers %s", action)
		}
	}

	br, _ := env.backend.Request(reqID)
	if br.Status != model.StatusApproved || br.ReturnDate == nil {
		t.Fatalf("unexpected backend state %+v", br)
	}

	p = bob.get("/my-requests")
	if !strings.Contains(p.body, "New Update!") {
		t.Error("expected New Update label")
	}
	if !strings.Contains(p.body, formatDate(br.ReturnDate)) {
		t.Error("expected return date")
	}

	p = bob.get("/my-borrowed-tools")
	if !strings.Contains(p.body, "Drill") {
		t.Error("expected Drill among borrowed tools")
	}
	p = alice.get("/lent-tools")
	if !strings.Contains(p.body, "Drill") {
		t.Error("expected Drill among lent tools")
	}

	p = alice.post("/incoming-requests/"+itoa(reqID)+"/returned", nil)
	if !strings.Contains(p.body, "Tool marked as returned successfully!") {
		t.Error("expected returned banner")
	}
	if strings.Contains(p.body, reqPath) {
		t.Error("returned request still offers an action")
	}
	p = alice.get("/lent-tools")
	if strings.Contains(p.body, "Drill") {
		t.Error("returned tool still listed as lent")
	}

	// The drill is available again; a second request gets rejected.
	p = bob.post(borrowPath, url.Values{"reason": {"Fence posts"}, "duration": {"2"}})
	if !strings.Contains(p.body, "Borrow request submitted successfully!") {
		t.Fatalf("expected second request to succeed: %s", p.body)
	}
	rejectedPath := "/incoming-requests/" + itoa(reqID+1) + "/"

	p = alice.get("/incoming-requests")
	if !strings.Contains(p.body, rejectedPath+"approve") || !strings.Contains(p.body, rejectedPath+"reject") {
		t.Fatal("expected approve and reject on the new request")
	}
	if strings.Contains(p.body, rejectedPath+"returned") {
		t.Error("pending request offers Mark Returned")
	}

	p = alice.post(rejectedPath+"reject", nil)
	if !strings.Contains(p.body, "Request rejected successfully!") {
		t.Error("expected rejection banner")
	}
	if strings.Contains(p.body, rejectedPath) {
		t.Error("rejected request still offers an action")
	}
}

func TestIncomingRowsAreNotHighlighted(t *testing.T) {
	env := setupTestSite(t)
	bob := newBrowser(t, env)
	bob.login("bob@example.com")
	bob.post("/borrow-tool/"+itoa(env.drill.ID), url.Values{"reason": {"Shelves"}, "duration": {"3"}})

	alice := newBrowser(t, env)
	alice.login("alice@example.com")
	p := alice.get("/incoming-requests")
	if !strings.Contains(p.body, "Shelves") {
		t.Fatal("expected the request on Incoming Requests")
	}
	if strings.Contains(p.body, `class="updated"`) {
		t.Error("incoming rows should not carry the update highlight")
	}
}

func TestBorrowValidatesBeforeNetwork(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)
	b.login("bob@example.com")

	path := "/borrow-tool/" + itoa(env.drill.ID)
	for _, duration := range []string{"0", "45", "three"} {
		p := b.post(path, url.Values{"reason": {"Shelves"}, "duration": {duration}})
		if !strings.Contains(p.body, "Duration must be between 1 and 30 days") {
			t.Errorf("duration %q: expected range message", duration)
		}
	}

	p := b.post(path, url.Values{"reason": {""}, "duration": {"3"}})
	if !strings.Contains(p.body, "banner error") {
		t.Error("expected error banner for missing reason")
	}

	if n := env.backend.Hits("POST /api/requests/"); n != 0 {
		t.Errorf("invalid requests reached the backend %d times", n)
	}
}

func TestBorrowUnknownTool(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)
	b.login("bob@example.com")

	p := b.get("/borrow-tool/999")
	if !strings.Contains(p.body, "Tool not found") {
		t.Error("expected not found message")
	}
}

func TestUnknownActionNotFound(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)
	b.login("alice@example.com")

	p := b.post("/incoming-requests/1/explode", nil)
	if p.status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", p.status)
	}
	if env.backend.Hits("POST /api/requests/1/explode/") != 0 {
		t.Error("unknown action reached the backend")
	}
}

func TestFailedActionShowsMessage(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)
	b.login("alice@example.com")

	p := b.post("/incoming-requests/999/approve", nil)
	if !strings.Contains(p.body, "Failed to approve request") {
		t.Error("expected failure banner")
	}
}

func TestUnauthorizedEndsSession(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)
	b.login("bob@example.com")

	env.backend.RevokeAll()

	p := b.get("/dashboard")
	if p.path != "/login" {
		t.Errorf("expected redirect to /login, ended on %s", p.path)
	}
	if env.sessions.Live() != 0 {
		t.Errorf("expected session torn down, %d live", env.sessions.Live())
	}

	// The cookie is gone, so the guard keeps redirecting.
	if p := b.get("/my-tools"); p.path != "/login" {
		t.Errorf("expected redirect to /login, ended on %s", p.path)
	}
}

func TestSeenMarksNotificationsRead(t *testing.T) {
	env := setupTestSite(t)
	bob := newBrowser(t, env)
	bob.login("bob@example.com")
	bob.post("/borrow-tool/"+itoa(env.drill.ID), url.Values{"reason": {"Shelves"}, "duration": {"2"}})

	alice := newBrowser(t, env)
	alice.login("alice@example.com")

	// Without a badge the parameter does nothing.
	alice.get("/dashboard?seen=1")
	if n := env.backend.Hits("POST /api/requests/notifications/read/"); n != 0 {
		t.Fatalf("mark-read sent with no known notifications: %d", n)
	}

	alice.get("/incoming-requests")
	alice.get("/incoming-requests?seen=1")
	if n := env.backend.Hits("POST /api/requests/notifications/read/"); n != 1 {
		t.Errorf("expected one mark-read call, got %d", n)
	}

	p := alice.get("/incoming-requests")
	if strings.Contains(p.body, "?seen=1") {
		t.Error("badge still shown after mark-read")
	}
}

func TestBellMarksReadAndReturns(t *testing.T) {
	env := setupTestSite(t)
	bob := newBrowser(t, env)
	bob.login("bob@example.com")
	bob.post("/borrow-tool/"+itoa(env.drill.ID), url.Values{"reason": {"Shelves"}, "duration": {"2"}})

	alice := newBrowser(t, env)
	alice.login("alice@example.com")
	alice.get("/incoming-requests")

	p := alice.post("/notifications/read", url.Values{"next": {"/my-tools"}})
	if p.path != "/my-tools" {
		t.Errorf("expected return to /my-tools, got %s", p.path)
	}
	if n := env.backend.Hits("POST /api/requests/notifications/read/"); n != 1 {
		t.Errorf("expected one mark-read call, got %d", n)
	}
}

func TestLogout(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)
	b.login("bob@example.com")

	p := b.get("/logout")
	if !strings.Contains(p.body, "Are you sure you want to logout?") {
		t.Error("expected logout confirmation")
	}

	p = b.post("/logout", nil)
	if p.path != "/login" {
		t.Errorf("expected /login after logout, got %s", p.path)
	}
	if env.sessions.Live() != 0 {
		t.Errorf("expected no live sessions, got %d", env.sessions.Live())
	}
	if env.backend.Hits("POST /api/auth/logout/") != 1 {
		t.Error("expected backend logout call")
	}
	if p := b.get("/dashboard"); p.path != "/login" {
		t.Errorf("expected guard redirect after logout, got %s", p.path)
	}
}

func TestToolLifecycle(t *testing.T) {
	env := setupTestSite(t)
	b := newBrowser(t, env)
	b.login("alice@example.com")

	p := b.postMultipart("/add-tool", map[string]string{
		"name":      "Ladder",
		"category":  model.CategoryHandTools,
		"condition": model.ConditionFair,
	})
	if p.path != "/my-tools" || !strings.Contains(p.body, "Tool added successfully!") {
		t.Fatalf("add tool ended on %s", p.path)
	}
	if !strings.Contains(p.body, "Ladder") || !strings.Contains(p.body, "Drill") {
		t.Error("expected both tools listed")
	}

	ladderID := env.drill.ID + 1
	if tool, ok := env.backend.Tool(ladderID); !ok || tool.Name != "Ladder" {
		t.Fatalf("unexpected backend tool %+v", tool)
	}
	id := itoa(ladderID)

	p = b.get("/my-tools?confirm=edit&id=" + id)
	if !strings.Contains(p.body, `Are you sure you want to edit "Ladder"?`) {
		t.Error("expected edit confirmation")
	}

	p = b.get("/my-tools?edit=" + id)
	if !strings.Contains(p.body, `action="/my-tools/`+id+`"`) {
		t.Error("expected inline edit form")
	}

	p = b.postMultipart("/my-tools/"+id, map[string]string{
		"name":      "Step Ladder",
		"category":  model.CategoryHandTools,
		"condition": model.ConditionGood,
	})
	if !strings.Contains(p.body, "Tool updated successfully!") || !strings.Contains(p.body, "Step Ladder") {
		t.Error("expected updated tool")
	}
	if tool, _ := env.backend.Tool(ladderID); tool.IsAvailable {
		t.Error("unchecked availability should mark the tool unavailable")
	}

	p = b.postMultipart("/my-tools/"+id, map[string]string{
		"name":      "",
		"category":  model.CategoryHandTools,
		"condition": model.ConditionGood,
	})
	if !strings.Contains(p.body, "banner error") {
		t.Error("expected validation banner for empty name")
	}

	p = b.get("/my-tools?confirm=delete&id=" + id)
	if !strings.Contains(p.body, `action="/my-tools/`+id+`/delete"`) {
		t.Error("expected delete confirmation form")
	}

	p = b.post("/my-tools/"+id+"/delete", nil)
	if !strings.Contains(p.body, "Tool deleted successfully!") {
		t.Error("expected delete banner")
	}
	if strings.Contains(p.body, "Step Ladder") {
		t.Error("deleted tool still listed")
	}
	if _, ok := env.backend.Tool(ladderID); ok {
		t.Error("tool still present in backend")
	}
}

func TestDashboardSearch(t *testing.T) {
	env := setupTestSite(t)
	env.backend.AddTool(env.drill.Owner.ID, "Rake", model.CategoryGardenTools, model.ConditionGood)
	b := newBrowser(t, env)
	b.login("bob@example.com")

	p := b.get("/dashboard?q=garden")
	if !strings.Contains(p.body, "Rake") || strings.Contains(p.body, "Drill") {
		t.Error("expected only the garden tool")
	}

	p = b.get("/dashboard?q=chainsaw")
	if !strings.Contains(p.body, "Try changing your search term.") {
		t.Error("expected empty search state")
	}
}

func TestStaticAssets(t *testing.T) {
	env := setupTestSite(t)
	p := newBrowser(t, env).get("/static/style.css")
	if p.status != http.StatusOK {
		t.Errorf("expected 200, got %d", p.status)
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/my-tools", "/my-tools"},
		{"/incoming-requests?page=2", "/incoming-requests?page=2"},
		{"", "/dashboard"},
		{"https://evil.example", "/dashboard"},
		{"//evil.example", "/dashboard"},
		{`/\evil.example`, "/dashboard"},
	}
	for _, tt := range tests {
		if got := localPath(tt.next); got != tt.want {
			t.Errorf("localPath(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}

func TestNavHref(t *testing.T) {
	if got := (NavItem{Path: "/my-requests"}).Href(); got != "/my-requests" {
		t.Errorf("got %q", got)
	}
	if got := (NavItem{Path: "/my-requests", Badge: 2}).Href(); got != "/my-requests?seen=1" {
		t.Errorf("got %q", got)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
