package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/imaging"
	"github.com/erazemk/toolshare/internal/model"
	"github.com/erazemk/toolshare/internal/session"
	"github.com/erazemk/toolshare/internal/store"
)

var (
	errNotLoggedIn    = errors.New("not logged in; run `toolshare login <email>` first")
	errSessionExpired = errors.New("session expired; run `toolshare login <email>` again")
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"serve":         {"serve", "run the web front-end", serve},
		"login":         {"login [-password P] <email>", "sign in and remember the session", cmdLogin},
		"signup":        {"signup -username U -email E -phone P -block B -house H [-password P]", "create an account and sign in", cmdSignup},
		"logout":        {"logout", "end the session", cmdLogout},
		"whoami":        {"whoami", "show the signed-in user", cmdWhoami},
		"tools":         {"tools [-page N] [-q term]", "list tools available from the community", cmdTools},
		"my-tools":      {"my-tools", "list your tools", cmdMyTools},
		"add-tool":      {"add-tool -name N [-category C] [-condition C] [-image path]", "list a new tool", cmdAddTool},
		"edit-tool":     {"edit-tool [-name N] [-category C] [-condition C] [-available=bool] [-image path] <id>", "change one of your tools", cmdEditTool},
		"delete-tool":   {"delete-tool <id>", "delete one of your tools", cmdDeleteTool},
		"borrow":        {"borrow -reason R [-days N] <tool-id>", "ask to borrow a tool", cmdBorrow},
		"requests":      {"requests [-page N]", "list your borrow requests", cmdRequests},
		"incoming":      {"incoming [-page N]", "list requests for your tools", cmdIncoming},
		"approve":       {"approve <request-id>", "approve a pending request", actionCommand(model.ActionApprove)},
		"reject":        {"reject <request-id>", "reject a pending request", actionCommand(model.ActionReject)},
		"returned":      {"returned <request-id>", "mark an approved request as returned", actionCommand(model.ActionReturned)},
		"borrowed":      {"borrowed", "list tools you are borrowing", cmdBorrowed},
		"lent":          {"lent", "list tools you have lent out", cmdLent},
		"stats":         {"stats", "show community statistics", cmdStats},
		"notifications": {"notifications", "show unread notification counts", cmdNotifications},
		"read":          {"read", "mark notifications as read", cmdRead},
		"watch":         {"watch", "print notification counts as they change", cmdWatch},
	}
}

func printCommands(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].help)
	}
	tw.Flush()
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: toolshare %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseID parses the single positional ID argument of a command.
func parseID(fs *flag.FlagSet, what string) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one %s", what)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", what, fs.Arg(0))
	}
	return id, nil
}

// session returns the session remembered by the last login.
func (a *app) session(ctx context.Context) (*session.Session, error) {
	id, err := store.GetSetting(ctx, a.db, store.KeyCLISession)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errNotLoggedIn
	}

	sess, err := a.sessions.Get(ctx, id)
	if errors.Is(err, session.ErrNoSession) {
		if err := store.DeleteSetting(ctx, a.db, store.KeyCLISession); err != nil {
			return nil, err
		}
		return nil, errNotLoggedIn
	}
	return sess, err
}

// client returns an API client for the remembered session.
func (a *app) client(ctx context.Context) (*client.Client, error) {
	sess, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	return a.sessions.Client(sess), nil
}

// prompt reads one line from the input after printing label.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// remember ends any previous CLI session and stores the new one.
func (a *app) remember(ctx context.Context, sess *session.Session) error {
	prev, err := store.GetSetting(ctx, a.db, store.KeyCLISession)
	if err != nil {
		return err
	}
	if prev != "" && prev != sess.ID {
		if err := a.sessions.Logout(ctx, prev); err != nil {
			return err
		}
	}
	return store.SetSetting(ctx, a.db, store.KeyCLISession, sess.ID)
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	password := fs.String("password", "", "password (prompted if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected an email address")
	}

	form := model.LoginForm{Email: fs.Arg(0), Password: *password}
	if form.Password == "" {
		var err error
		if form.Password, err = a.prompt("Password: "); err != nil {
			return err
		}
	}

	sess, err := a.sessions.Login(ctx, form)
	if err != nil {
		return err
	}
	if err := a.remember(ctx, sess); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", sess.User().Username)
	return nil
}

func cmdSignup(ctx context.Context, a *app, args []string) error {
	var form model.SignupForm
	fs := newFlagSet("signup")
	fs.StringVar(&form.Username, "username", "", "username")
	fs.StringVar(&form.Email, "email", "", "email address")
	fs.StringVar(&form.Phone, "phone", "", "phone number")
	fs.StringVar(&form.BlockNo, "block", "", "block number")
	fs.StringVar(&form.HouseNo, "house", "", "house number")
	fs.StringVar(&form.Password, "password", "", "password (prompted if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form.ConfirmPassword = form.Password
	if form.Password == "" {
		var err error
		if form.Password, err = a.prompt("Password: "); err != nil {
			return err
		}
		if form.ConfirmPassword, err = a.prompt("Confirm password: "); err != nil {
			return err
		}
	}

	sess, err := a.sessions.Signup(ctx, form)
	if err != nil {
		return err
	}
	if err := a.remember(ctx, sess); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Account created. Logged in as %s\n", sess.User().Username)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("logout").Parse(args); err != nil {
		return err
	}

	id, err := store.GetSetting(ctx, a.db, store.KeyCLISession)
	if err != nil {
		return err
	}
	if id == "" {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	if err := a.sessions.Logout(ctx, id); err != nil {
		return err
	}
	if err := store.DeleteSetting(ctx, a.db, store.KeyCLISession); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("whoami").Parse(args); err != nil {
		return err
	}
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}

	user, err := a.sessions.RefreshUser(ctx, sess)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Username:\t%s\n", user.Username)
	fmt.Fprintf(tw, "Email:\t%s\n", user.Email)
	fmt.Fprintf(tw, "Phone:\t%s\n", user.Phone)
	fmt.Fprintf(tw, "Address:\tBlock %s, House %s\n", user.BlockNo, user.HouseNo)
	return tw.Flush()
}

func cmdTools(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("tools")
	page := fs.Int("page", 1, "page number")
	query := fs.String("q", "", "only show tools whose name or category contains this")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	p, err := c.Tools(ctx, max(*page, 1))
	if err != nil {
		return err
	}
	tools := model.FilterTools(p.Results, *query)
	if len(tools) == 0 {
		fmt.Fprintln(a.out, "No tools available")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tCONDITION\tOWNER\tLOCATION")
	for _, t := range tools {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\tBlock %s, House %s\n",
			t.ID, t.Name, t.Category, t.Condition, t.Owner.Username, t.Owner.BlockNo, t.Owner.HouseNo)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if p.HasNext() {
		fmt.Fprintf(a.out, "More tools: toolshare tools -page %d\n", max(*page, 1)+1)
	}
	return nil
}

func cmdMyTools(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("my-tools").Parse(args); err != nil {
		return err
	}
	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	tools, err := c.MyTools(ctx)
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		fmt.Fprintln(a.out, "No tools yet. Add one with toolshare add-tool")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tCONDITION\tAVAILABLE")
	for _, t := range tools {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Category, t.Condition, yesNo(t.IsAvailable))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d tools, %d available\n", len(tools), model.CountAvailable(tools))
	return nil
}

// readImage prepares an image file for upload. An empty path means no image.
func readImage(path string) (*client.Image, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	up, err := imaging.Prepare(path, f)
	if err != nil {
		return nil, err
	}
	return &client.Image{Filename: up.Filename, MIME: up.MIME, Data: up.Data}, nil
}

func cmdAddTool(ctx context.Context, a *app, args []string) error {
	var form model.ToolForm
	fs := newFlagSet("add-tool")
	fs.StringVar(&form.Name, "name", "", "tool name")
	fs.StringVar(&form.Category, "category", model.CategoryPowerTools, "one of: "+strings.Join(model.Categories, ", "))
	fs.StringVar(&form.Condition, "condition", model.ConditionGood, "one of: "+strings.Join(model.Conditions, ", "))
	imagePath := fs.String("image", "", "image file (PNG, JPG, GIF or WebP, up to 5MB)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := model.Validate(form); err != nil {
		return err
	}
	img, err := readImage(*imagePath)
	if err != nil {
		return err
	}

	c, err := a.client(ctx)
	if err != nil {
		return err
	}
	tool, err := c.CreateTool(ctx, form, img)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Tool added: #%d %s\n", tool.ID, tool.Name)
	return nil
}

func cmdEditTool(ctx context.Context, a *app, args []string) error {
	var form model.ToolForm
	fs := newFlagSet("edit-tool")
	fs.StringVar(&form.Name, "name", "", "new name")
	fs.StringVar(&form.Category, "category", "", "new category")
	fs.StringVar(&form.Condition, "condition", "", "new condition")
	fs.BoolVar(&form.IsAvailable, "available", false, "whether the tool can be borrowed")
	imagePath := fs.String("image", "", "new image file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs, "tool ID")
	if err != nil {
		return err
	}

	c, err := a.client(ctx)
	if err != nil {
		return err
	}
	tools, err := c.MyTools(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(tools, func(t model.Tool) bool { return t.ID == id })
	if i < 0 {
		return fmt.Errorf("you have no tool with ID %d", id)
	}

	// Unset flags keep the tool's current values.
	merged := model.FormFromTool(tools[i])
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			merged.Name = form.Name
		case "category":
			merged.Category = form.Category
		case "condition":
			merged.Condition = form.Condition
		case "available":
			merged.IsAvailable = form.IsAvailable
		}
	})

	if err := model.Validate(merged); err != nil {
		return err
	}
	img, err := readImage(*imagePath)
	if err != nil {
		return err
	}

	tool, err := c.UpdateTool(ctx, id, merged, img)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Tool updated: #%d %s (%s, %s, available: %s)\n",
		tool.ID, tool.Name, tool.Category, tool.Condition, yesNo(tool.IsAvailable))
	return nil
}

func cmdDeleteTool(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("delete-tool")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs, "tool ID")
	if err != nil {
		return err
	}

	c, err := a.client(ctx)
	if err != nil {
		return err
	}
	if err := c.DeleteTool(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Tool #%d deleted\n", id)
	return nil
}

func cmdBorrow(ctx context.Context, a *app, args []string) error {
	var form model.BorrowForm
	fs := newFlagSet("borrow")
	fs.StringVar(&form.Reason, "reason", "", "why you need the tool")
	fs.IntVar(&form.Duration, "days", 7, fmt.Sprintf("how many days (1-%d)", model.MaxBorrowDays))
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs, "tool ID")
	if err != nil {
		return err
	}
	form.ToolID = id
	form.Reason = strings.TrimSpace(form.Reason)

	if err := model.Validate(form); err != nil {
		return err
	}

	c, err := a.client(ctx)
	if err != nil {
		return err
	}
	req, err := c.CreateRequest(ctx, form)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Borrow request #%d submitted for %s (%d days)\n", req.ID, req.Tool.Name, req.Duration)
	return nil
}

// requestStatus renders a status with the flags a reader should notice.
func requestStatus(r model.BorrowRequest, borrower bool) string {
	s := r.Status
	if borrower && r.HasNewUpdate() {
		s += " (new update)"
	}
	if r.IsOverdue {
		s += " (overdue)"
	}
	return s
}

func returnDate(d *model.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func cmdRequests(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("requests")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	p, err := c.MyRequests(ctx, max(*page, 1))
	if err != nil {
		return err
	}
	if len(p.Results) == 0 {
		fmt.Fprintln(a.out, "No requests yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOOL\tOWNER\tDAYS\tSTATUS\tRETURN BY")
	for _, r := range p.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Tool.Name, r.Tool.Owner.Username, r.Duration, requestStatus(r, true), returnDate(r.ReturnDate))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if p.HasNext() {
		fmt.Fprintf(a.out, "More requests: toolshare requests -page %d\n", max(*page, 1)+1)
	}
	return nil
}

func cmdIncoming(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("incoming")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	p, err := c.IncomingRequests(ctx, max(*page, 1))
	if err != nil {
		return err
	}
	if len(p.Results) == 0 {
		fmt.Fprintln(a.out, "No incoming requests")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOOL\tBORROWER\tCONTACT\tDAYS\tSTATUS\tRETURN BY\tACTIONS\tREASON")
	for _, r := range p.Results {
		actions := strings.Join(model.ActionsFor(r.Status), ", ")
		if actions == "" {
			actions = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Tool.Name, r.Borrower.Username, r.Borrower.Phone, r.Duration,
			requestStatus(r, false), returnDate(r.ReturnDate), actions, r.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if p.HasNext() {
		fmt.Fprintf(a.out, "More requests: toolshare incoming -page %d\n", max(*page, 1)+1)
	}
	return nil
}

func actionCommand(action string) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		fs := newFlagSet(action)
		if err := fs.Parse(args); err != nil {
			return err
		}
		id, err := parseID(fs, "request ID")
		if err != nil {
			return err
		}

		c, err := a.client(ctx)
		if err != nil {
			return err
		}
		resp, err := c.Act(ctx, id, action)
		if err != nil {
			return err
		}

		msg := resp.Message
		if msg == "" {
			msg = "Request updated"
		}
		fmt.Fprintf(a.out, "%s: #%d %s is now %s\n", msg, resp.Request.ID, resp.Request.Tool.Name, resp.Request.Status)
		return nil
	}
}

func cmdBorrowed(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("borrowed").Parse(args); err != nil {
		return err
	}
	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	reqs, err := c.BorrowedTools(ctx)
	if err != nil {
		return err
	}
	reqs = model.Approved(reqs)
	if len(reqs) == 0 {
		fmt.Fprintln(a.out, "No borrowed tools")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tOWNER\tCONTACT\tRETURN BY\tOVERDUE")
	for _, r := range reqs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Tool.Name, r.Tool.Owner.Username, r.Tool.Owner.Phone, returnDate(r.ReturnDate), yesNo(r.IsOverdue))
	}
	return tw.Flush()
}

func cmdLent(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("lent").Parse(args); err != nil {
		return err
	}
	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	reqs, err := c.LentTools(ctx)
	if err != nil {
		return err
	}
	reqs = model.Approved(reqs)
	if len(reqs) == 0 {
		fmt.Fprintln(a.out, "No lent tools")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tBORROWER\tCONTACT\tRETURN BY\tOVERDUE")
	for _, r := range reqs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Tool.Name, r.Borrower.Username, r.Borrower.Phone, returnDate(r.ReturnDate), yesNo(r.IsOverdue))
	}
	return tw.Flush()
}

func cmdStats(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("stats").Parse(args); err != nil {
		return err
	}
	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	tools, err := c.ToolStats(ctx)
	if err != nil {
		return err
	}
	requests, err := c.RequestStats(ctx)
	if err != nil {
		return err
	}
	s := tools.Merge(*requests)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total tools:\t%d\n", s.TotalTools)
	fmt.Fprintf(tw, "Available tools:\t%d\n", s.AvailableTools)
	fmt.Fprintf(tw, "Total users:\t%d\n", s.TotalUsers)
	fmt.Fprintf(tw, "Total borrowings:\t%d\n", s.TotalBorrowed)
	fmt.Fprintf(tw, "Total lent:\t%d\n", s.TotalLent)
	return tw.Flush()
}

func printCounts(w io.Writer, n model.NotificationData) {
	fmt.Fprintf(w, "%d new (approvals: %d, requests: %d)\n", n.TotalNotifications, n.NewApprovals, n.NewRequests)
}

func cmdNotifications(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("notifications").Parse(args); err != nil {
		return err
	}
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}

	if err := sess.Poller().Refresh(ctx); err != nil {
		return err
	}
	printCounts(a.out, sess.Notifications())
	return nil
}

func cmdRead(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("read").Parse(args); err != nil {
		return err
	}
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}

	if err := sess.Poller().MarkAsRead(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Notifications marked as read")
	return nil
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("watch").Parse(args); err != nil {
		return err
	}
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first refresh reports the current counts even when they are zero.
	if err := sess.Poller().Refresh(ctx); err != nil {
		return err
	}
	printCounts(a.out, sess.Notifications())

	sess.Poller().OnChange(func(n model.NotificationData) {
		fmt.Fprintf(a.out, "%s  ", time.Now().Format(time.TimeOnly))
		printCounts(a.out, n)
	})
	sess.Poller().Start(ctx)
	defer sess.Poller().Stop()

	fmt.Fprintf(a.out, "Watching every %s, press Ctrl+C to stop\n", a.cfg.PollInterval)

	// The poller stops on its own when the backend rejects the session.
	check := time.NewTicker(time.Second)
	defer check.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-check.C:
			if !sess.Poller().Running() {
				return errSessionExpired
			}
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
