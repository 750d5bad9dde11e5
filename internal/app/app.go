// Package app bootstraps the NeighNet command line client.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AbrahamRP97/neighnet-go/internal/config"
	"github.com/AbrahamRP97/neighnet-go/internal/session"
	"github.com/AbrahamRP97/neighnet-go/internal/stubserver"
)

// Run bootstraps the NeighNet client application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected a command: login, logout, register, verify-phone, me, profile, theme, feed, publish, edit, delete-post, visitors, pass, scan, evidence, visits, stub")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if args[0] == "stub" {
		return runStub(ctx, cfg, logger)
	}

	store, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	deps := buildDependencies(cfg, store)

	switch args[0] {
	case "login":
		return cmdLogin(ctx, deps, args[1:])
	case "logout":
		return deps.Auth.Logout(ctx)
	case "register":
		return cmdRegister(ctx, deps, args[1:])
	case "verify-phone":
		return cmdVerifyPhone(ctx, deps, args[1:])
	case "me":
		return cmdMe(ctx, deps)
	case "profile":
		return cmdProfile(ctx, deps, args[1:])
	case "theme":
		return cmdTheme(deps, args[1:])
	case "feed":
		return cmdFeed(ctx, deps, args[1:])
	case "publish":
		return cmdPublish(ctx, deps, args[1:])
	case "edit":
		return cmdEdit(ctx, deps, args[1:])
	case "delete-post":
		return cmdDeletePost(ctx, deps, args[1:])
	case "visitors":
		return cmdVisitors(ctx, deps, args[1:])
	case "pass":
		return cmdPass(ctx, deps, cfg, args[1:])
	case "scan":
		return cmdScan(ctx, deps, args[1:])
	case "evidence":
		return cmdEvidence(ctx, deps, args[1:])
	case "visits":
		return cmdVisits(ctx, deps, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runStub(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	srv, err := stubserver.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := srv.Seed(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-signalCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return srv.Run(ctx)
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
