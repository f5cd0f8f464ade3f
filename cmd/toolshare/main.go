package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/config"
	"github.com/erazemk/toolshare/internal/db"
	"github.com/erazemk/toolshare/internal/session"
	"github.com/erazemk/toolshare/internal/store"
)

// app is the state shared by all commands.
type app struct {
	cfg config.Config
	db  *sql.DB

	// sessions is set for every command except serve.
	sessions *session.Manager

	in  *bufio.Reader
	out io.Writer
}

const usage = `Usage: toolshare [flags] <command> [command flags] [args]

Flags:
  -d, -db <path>          SQLite database path (default: toolshare.sqlite3)
  -a, -addr <host:port>   listen address for serve (default: :3000)
  -api <url>              backend API root (default: http://localhost:8000/api)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Settings are also read from TOOLSHARE_* environment variables and a .env
file in the working directory. Flags take precedence.

Commands:
`

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("toolshare", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, usage)
		printCommands(os.Stdout)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	name, args := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", name)
		fs.Usage()
		os.Exit(1)
	}

	// The server logs everything it does; CLI commands only report problems.
	level := slog.LevelWarn
	if name == "serve" {
		level = slog.LevelInfo
	}
	closeLog, err := setupLogger(cfg.LogPath, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations (idempotent).
	if err := db.Migrate(database); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, db: database, in: bufio.NewReader(os.Stdin), out: os.Stdout}

	if name == "serve" {
		slog.Info("database ready", "path", cfg.DBPath)
		if err := cmd.run(context.Background(), a, args); err != nil && !errors.Is(err, flag.ErrHelp) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := a.run(context.Background(), cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run executes a CLI command with a session manager that never polls in the
// background.
func (a *app) run(ctx context.Context, cmd command, args []string) error {
	sessions, err := session.NewManager(ctx, a.db, client.New(a.cfg.APIURL, nil), session.Options{
		PollInterval: a.cfg.PollInterval,
		NoPolling:    true,
	})
	if err != nil {
		return err
	}
	defer sessions.Close()
	a.sessions = sessions

	err = cmd.run(ctx, a, args)
	if client.IsUnauthorized(err) || errors.Is(err, errSessionExpired) {
		// The session was torn down by the client hook.
		if err := store.DeleteSetting(ctx, a.db, store.KeyCLISession); err != nil {
			slog.Error("failed to forget session", "error", err)
		}
		return errSessionExpired
	}
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}
