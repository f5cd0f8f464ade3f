package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/toolshare/internal/auth"
	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/session"
	"github.com/erazemk/toolshare/internal/store"
	"github.com/erazemk/toolshare/internal/web"
)

// sweepInterval is how often expired and idle sessions are swept.
const sweepInterval = 5 * time.Minute

// serve runs the web front-end until SIGINT or SIGTERM.
func serve(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("serve").Parse(args); err != nil {
		return err
	}

	pruned, err := store.PruneSessions(ctx, a.db, time.Now().Add(-auth.TokenExpiry))
	if err != nil {
		return err
	}
	if pruned > 0 {
		slog.Info("pruned stale sessions", "count", pruned)
	}

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, a.db)
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(ctx, a.db, client.New(a.cfg.APIURL, nil), session.Options{
		PollInterval: a.cfg.PollInterval,
		MaxAge:       auth.TokenExpiry,
		IdleTimeout:  a.cfg.IdleTimeout,
	})
	if err != nil {
		return err
	}
	defer sessions.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweepSessions(sweepCtx, sessions, sweepInterval)
	}()
	defer func() {
		stopSweep()
		<-sweepDone
	}()

	router, err := web.NewRouter(sessions, web.Options{
		JWTSecret:     jwtSecret,
		SecureCookies: a.cfg.SecureCookies,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           web.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", a.cfg.Addr, "api", a.cfg.APIURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("server stopped, closing sessions")
	return nil
}

// sweepSessions ends expired sessions and unloads idle ones every interval
// until ctx is cancelled.
func sweepSessions(ctx context.Context, sessions *session.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ended, unloaded, err := sessions.Sweep(ctx, now)
			if err != nil {
				slog.Error("failed to sweep sessions", "error", err)
			}
			if ended > 0 || unloaded > 0 {
				slog.Info("swept sessions", "ended", ended, "unloaded", unloaded, "live", sessions.Live())
			}
		}
	}
}
